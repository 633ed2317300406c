// Package merge stitches measurements from multiple sensor setups that
// share a set of reference channels into a single extended-channel
// structure, so the frequency and subspace identification stages can run
// once over all channels.
//
// Each setup is assumed to observe the same processes; its reference
// channels reproduce the shared response up to a scale. Spectra merges
// spectral density matrices, Covariances merges the lag covariance
// sequence feeding covariance-driven subspace identification. Both align
// the setups by a least squares scale on the reference block, average
// the reference part, and concatenate the moving channels.
package merge
