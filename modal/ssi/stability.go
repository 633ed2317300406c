package ssi

import (
	"math"

	"github.com/cwbudde/algo-oma/modal/shape"
)

// Label classifies a pole on the stabilization diagram by how well it
// reproduces a pole from the previous model order. Labels are ordered:
// a higher label means a stronger match.
type Label uint8

const (
	// LabelNew marks a pole with no counterpart at the previous order,
	// or one violating the damping bound.
	LabelNew Label = iota
	// LabelFreq marks a pole whose frequency is reproduced.
	LabelFreq
	// LabelFreqDamp additionally reproduces the damping ratio.
	LabelFreqDamp
	// LabelStable reproduces frequency, damping and mode shape.
	LabelStable
)

// String returns a short diagram marker for the label.
func (l Label) String() string {
	switch l {
	case LabelNew:
		return "new"
	case LabelFreq:
		return "freq"
	case LabelFreqDamp:
		return "freq+damp"
	case LabelStable:
		return "stable"
	default:
		return "?"
	}
}

// StabilityConfig holds the tolerances of the stabilization check.
// The zero value selects the usual defaults.
type StabilityConfig struct {
	// FreqTol is the maximum relative frequency deviation between
	// consecutive orders. Defaults to 0.01.
	FreqTol float64
	// DampTol is the maximum relative damping deviation. Defaults
	// to 0.05.
	DampTol float64
	// MACTol bounds the shape deviation: the MAC with the matched pole
	// must reach 1-MACTol. Defaults to 0.03.
	MACTol float64
	// MaxDamping rejects poles with damping above this ratio, or with
	// non-positive damping. Defaults to 0.1.
	MaxDamping float64
}

func normalizeStabilityConfig(cfg StabilityConfig) StabilityConfig {
	if cfg.FreqTol <= 0 {
		cfg.FreqTol = 0.01
	}
	if cfg.DampTol <= 0 {
		cfg.DampTol = 0.05
	}
	if cfg.MACTol <= 0 {
		cfg.MACTol = 0.03
	}
	if cfg.MaxDamping <= 0 {
		cfg.MaxDamping = 0.1
	}
	return cfg
}

// ClassifyStability labels every pole in the order sweep by comparing it
// with the closest-frequency pole of the previous table. The first table
// holds only LabelNew. The function is pure: classifying the same tables
// twice yields identical labels.
func ClassifyStability(tables []PoleTable, cfg StabilityConfig) [][]Label {
	cfg = normalizeStabilityConfig(cfg)

	labels := make([][]Label, len(tables))
	for t, table := range tables {
		labels[t] = make([]Label, len(table.Poles))
		for p, pole := range table.Poles {
			if pole.Damping <= 0 || pole.Damping > cfg.MaxDamping {
				labels[t][p] = LabelNew
				continue
			}
			if t == 0 {
				labels[t][p] = LabelNew
				continue
			}
			labels[t][p] = classifyAgainst(pole, tables[t-1].Poles, cfg)
		}
	}
	return labels
}

// classifyAgainst grades pole against its nearest-frequency counterpart
// in prev.
func classifyAgainst(pole Pole, prev []Pole, cfg StabilityConfig) Label {
	best := -1
	bestDiff := math.Inf(1)
	for i, q := range prev {
		diff := math.Abs(q.Freq - pole.Freq)
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 {
		return LabelNew
	}
	match := prev[best]
	if relDiff(pole.Freq, match.Freq) > cfg.FreqTol {
		return LabelNew
	}
	if relDiff(pole.Damping, match.Damping) > cfg.DampTol {
		return LabelFreq
	}
	if shape.MAC(pole.Shape, match.Shape) < 1-cfg.MACTol {
		return LabelFreqDamp
	}
	return LabelStable
}

func relDiff(a, b float64) float64 {
	ref := math.Abs(b)
	if ref == 0 {
		ref = math.Abs(a)
	}
	if ref == 0 {
		return 0
	}
	return math.Abs(a-b) / ref
}
