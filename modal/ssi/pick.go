package ssi

import (
	"fmt"
	"math"
)

// OrderFindMin selects, per target, the lowest model order exposing a
// stable matching pole.
const OrderFindMin = 0

// PickConfig controls how poles are selected from a labeled
// stabilization diagram.
type PickConfig struct {
	// Order is the model order to read poles from; OrderFindMin walks
	// the orders from the bottom and takes the first stable match.
	Order int
	// FreqTol is the absolute matching half-width in Hz. Defaults
	// to 0.05.
	FreqTol float64
	// RelTol widens the half-width proportionally to the target
	// frequency. Defaults to 0.01.
	RelTol float64
}

func normalizePickConfig(cfg PickConfig) PickConfig {
	if cfg.FreqTol <= 0 {
		cfg.FreqTol = 0.05
	}
	if cfg.RelTol <= 0 {
		cfg.RelTol = 0.01
	}
	return cfg
}

// Pick extracts one pole per target frequency from the labeled tables.
// Only poles labeled stable are candidates; within the matching band the
// closest frequency wins. A target with no stable pole in band at any
// admissible order yields ErrNoMatchingPole.
func Pick(tables []PoleTable, labels [][]Label, targets []float64, cfg PickConfig) ([]Pole, error) {
	if len(tables) == 0 {
		return nil, ErrNoData
	}
	if len(labels) != len(tables) {
		return nil, fmt.Errorf("ssi: %d label rows for %d tables", len(labels), len(tables))
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("ssi: no target frequencies")
	}
	cfg = normalizePickConfig(cfg)

	picked := make([]Pole, len(targets))
	for i, target := range targets {
		band := cfg.FreqTol + cfg.RelTol*target
		pole, ok := pickOne(tables, labels, target, band, cfg.Order)
		if !ok {
			return nil, fmt.Errorf("%w: %g Hz ± %g Hz", ErrNoMatchingPole, target, band)
		}
		picked[i] = pole
	}
	return picked, nil
}

func pickOne(tables []PoleTable, labels [][]Label, target, band float64, order int) (Pole, bool) {
	for t, table := range tables {
		if order != OrderFindMin && table.Order != order {
			continue
		}
		best := -1
		bestDiff := math.Inf(1)
		for p, pole := range table.Poles {
			if labels[t][p] != LabelStable {
				continue
			}
			diff := math.Abs(pole.Freq - target)
			if diff <= band && diff < bestDiff {
				best, bestDiff = p, diff
			}
		}
		if best >= 0 {
			return table.Poles[best], true
		}
	}
	return Pole{}, false
}
