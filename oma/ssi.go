package oma

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-oma/modal/ssi"
)

// SSIConfig configures a subspace identification run. Zero values select
// the usual defaults.
type SSIConfig struct {
	// Method selects the subspace matrix construction.
	Method ssi.Method
	// BlockRows is the Hankel block row count. Defaults to 20.
	BlockRows int
	// RefIndices restricts the reference channels to a subset of the
	// outputs; nil uses every channel.
	RefIndices []int
	// MinOrder, MaxOrder and OrderStep define the model order sweep.
	// Defaults: 2 to 2*BlockRows in steps of 2, capped by the subspace
	// width.
	MinOrder  int
	MaxOrder  int
	OrderStep int
	// Stability holds the stabilization tolerances.
	Stability ssi.StabilityConfig
	// Logger receives progress events; nil disables logging.
	Logger *zap.Logger
}

// SSIResult is the immutable artifact of a subspace run: the labeled
// stabilization diagram plus the frozen run parameters.
type SSIResult struct {
	Params RunParams

	tables []ssi.PoleTable
	labels [][]ssi.Label
	sv     []float64
}

// Tables returns the pole tables of the order sweep.
func (r *SSIResult) Tables() []ssi.PoleTable { return r.tables }

// Labels returns the stability label of every pole, indexed like Tables.
func (r *SSIResult) Labels() [][]ssi.Label { return r.labels }

// SingularValues returns the subspace singular values, for order
// selection diagnostics.
func (r *SSIResult) SingularValues() []float64 { return r.sv }

// RunSSI builds and factorizes the subspace matrix of the record, sweeps
// the model orders into a labeled stabilization diagram, and returns the
// run artifact. y is channel-major; fs is the sampling rate in Hz.
func RunSSI(y [][]float64, fs float64, cfg SSIConfig) (*SSIResult, error) {
	if len(y) == 0 || len(y[0]) == 0 {
		return nil, ErrNoData
	}
	if fs <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrBadRate, fs)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.BlockRows == 0 {
		cfg.BlockRows = 20
	}

	var yref [][]float64
	if cfg.RefIndices != nil {
		yref = make([][]float64, len(cfg.RefIndices))
		for i, idx := range cfg.RefIndices {
			if idx < 0 || idx >= len(y) {
				return nil, fmt.Errorf("oma: reference index %d out of range", idx)
			}
			yref[i] = y[idx]
		}
	}

	nRef := len(y)
	if yref != nil {
		nRef = len(yref)
	}
	width := cfg.BlockRows * nRef

	if cfg.MinOrder == 0 {
		cfg.MinOrder = 2
	}
	if cfg.MaxOrder == 0 {
		cfg.MaxOrder = min(2*cfg.BlockRows, width)
	}
	if cfg.OrderStep == 0 {
		cfg.OrderStep = 2
	}
	if cfg.MinOrder < 1 || cfg.MaxOrder < cfg.MinOrder || cfg.MaxOrder > width {
		return nil, fmt.Errorf("%w: %d..%d (width %d)", ErrBadOrderSpan, cfg.MinOrder, cfg.MaxOrder, width)
	}

	log.Info("building subspace matrix",
		zap.Int("channels", len(y)),
		zap.Int("samples", len(y[0])),
		zap.Int("blockRows", cfg.BlockRows),
		zap.String("method", cfg.Method.String()),
	)

	h, err := ssi.BuildHankel(y, yref, cfg.BlockRows, cfg.Method)
	if err != nil {
		return nil, fmt.Errorf("oma: %w", err)
	}

	f, err := ssi.Factorize(h, len(y), cfg.MaxOrder)
	if err != nil {
		return nil, fmt.Errorf("oma: %w", err)
	}

	dt := 1 / fs
	tables, err := ssi.ExtractPoles(f, cfg.MinOrder, cfg.MaxOrder, cfg.OrderStep, dt)
	if err != nil {
		return nil, fmt.Errorf("oma: %w", err)
	}
	labels := ssi.ClassifyStability(tables, cfg.Stability)
	log.Info("stabilization diagram ready", zap.Int("orders", len(tables)))

	return &SSIResult{
		Params: RunParams{
			Algorithm:  "SSI-" + cfg.Method.String(),
			SampleRate: fs,
			Channels:   len(y),
			Samples:    len(y[0]),
			BlockRows:  cfg.BlockRows,
			MinOrder:   cfg.MinOrder,
			MaxOrder:   cfg.MaxOrder,
			OrderStep:  cfg.OrderStep,
			Stability:  cfg.Stability,
		},
		tables: tables,
		labels: labels,
		sv:     f.SingularValues,
	}, nil
}

// MPE extracts one stable pole per target frequency from the diagram.
// It is a pure function of the artifact and the selection.
func (r *SSIResult) MPE(targets []float64, pick ssi.PickConfig) (*ModalResult, error) {
	poles, err := ssi.Pick(r.tables, r.labels, targets, pick)
	if err != nil {
		return nil, fmt.Errorf("oma: %w", err)
	}
	res := &ModalResult{
		Params: r.Params,
		Fn:     make([]float64, len(poles)),
		Xi:     make([]float64, len(poles)),
		Phi:    make([][]complex128, len(poles)),
	}
	for i, p := range poles {
		res.Fn[i] = p.Freq
		res.Xi[i] = p.Damping
		res.Phi[i] = p.Shape
	}
	return res, nil
}
