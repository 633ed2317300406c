// Package ssi implements stochastic subspace identification for
// operational modal analysis.
//
// BuildHankel assembles the subspace matrix from the measured channels,
// either data-driven (projection of future outputs onto past references)
// or covariance-driven (block Toeplitz of lag covariances). Factorize
// truncates its singular value decomposition into an extended
// observability matrix, from which Realize reads a discrete state-space
// pair at any order. ExtractPoles sweeps a range of orders into
// stabilization tables, ClassifyStability grades pole reproduction across
// consecutive orders, and Pick reads the final modal estimates off the
// diagram.
package ssi
