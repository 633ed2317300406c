// Package spectral estimates cross power spectral density matrices from
// multi-channel vibration records.
//
// Two estimators are provided: Welch averaged periodograms and the
// Blackman-Tukey correlogram (biased lag-windowed cross-correlations).
// Both produce the same one-sided frequency grid with resolution
// 1/(SegmentLength*dt), so downstream modal identification is agnostic
// to the estimator choice.
//
// # Usage
//
//	est := spectral.NewEstimator(spectral.Config{SegmentLength: 1024})
//	sd, err := est.Estimate(channels, nil, 1.0/fs)
//	// sd.Sy[f] is the Hermitian density matrix at sd.Freq[f]
package spectral
