// Package oma ties the estimation stages into complete operational modal
// analysis runs.
//
// Two families are provided. RunFDD covers the frequency-domain chain
// (spectral density, per-line decomposition, peak picking, optionally the
// enhanced damping estimate). RunSSI covers stochastic subspace
// identification (subspace matrix, observability factorization, order
// sweep, stabilization diagram). Both return an immutable artifact; modal
// parameters are read from it with MPE, a pure function of the artifact
// and the selected frequencies, so successive extractions never interfere.
//
// Progress logging goes through a zap logger supplied in the config; runs
// are silent by default.
package oma
