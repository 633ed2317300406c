// Package fdd implements frequency domain decomposition for operational
// modal analysis.
//
// The pipeline has three stages. Decompose turns a stack of spectral
// density matrices into per-line singular values and vectors. PeakPick
// reads natural frequencies and mode shapes straight off the first
// singular value track. Enhance additionally estimates damping by
// isolating the single-mode bell around each peak, transforming it back
// to an autocorrelation and fitting the logarithmic decrement of its
// decay; the bell is assembled either from the tracked singular value
// (EFDD) or from the spectral matrix projected onto the mode shape
// (FSDD).
package fdd
