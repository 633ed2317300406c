// Command wininfo prints spectral properties of the window functions used
// by the spectral density estimator.
//
// Usage:
//
//	wininfo [flags] [window-name ...]
//
// Without arguments it prints info for all known window types.
//
// Examples:
//
//	wininfo hann
//	wininfo -size 1024 blackman kaiser
//	wininfo -size 4096 -alpha 8 kaiser
//	wininfo -list
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-oma/dsp/window"
)

type windowEntry struct {
	name     string
	typ      window.Type
	hasAlpha bool
	defAlpha float64
}

var registry = []windowEntry{
	{"rectangular", window.TypeRectangular, false, 0},
	{"hann", window.TypeHann, false, 0},
	{"hamming", window.TypeHamming, false, 0},
	{"blackman", window.TypeBlackman, false, 0},
	{"flattop", window.TypeFlatTop, false, 0},
	{"kaiser", window.TypeKaiser, true, 8.6},
	{"tukey", window.TypeTukey, true, 0.5},
}

func main() {
	size := flag.Int("size", 2048, "window length in samples")
	alpha := flag.Float64("alpha", -1, "alpha/beta parameter for kaiser and tukey (-1 = default)")
	periodic := flag.Bool("periodic", false, "periodic (FFT framing) instead of symmetric form")
	list := flag.Bool("list", false, "list known window names and exit")
	flag.Parse()

	if *list {
		for _, e := range registry {
			fmt.Println(e.name)
		}
		return
	}

	names := flag.Args()
	if len(names) == 0 {
		for _, e := range registry {
			names = append(names, e.name)
		}
	}

	if *size < 2 {
		fmt.Fprintf(os.Stderr, "wininfo: size must be at least 2, got %d\n", *size)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "window\tENBW (bins)\tcoherent gain\tsum sq")

	for _, name := range names {
		entry, ok := lookup(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "wininfo: unknown window %q (try -list)\n", name)
			os.Exit(1)
		}

		opts := []window.Option{}
		if *periodic {
			opts = append(opts, window.WithPeriodic())
		}
		if entry.hasAlpha {
			a := entry.defAlpha
			if *alpha >= 0 {
				a = *alpha
			}
			opts = append(opts, window.WithAlpha(a))
		}

		coeffs := window.Generate(entry.typ, *size, opts...)
		enbw, err := window.EquivalentNoiseBandwidth(coeffs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wininfo: %s: %v\n", name, err)
			os.Exit(1)
		}
		gain, err := window.CoherentGain(coeffs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wininfo: %s: %v\n", name, err)
			os.Exit(1)
		}
		sumSq, err := window.SumSquares(coeffs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wininfo: %s: %v\n", name, err)
			os.Exit(1)
		}

		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n", entry.name, enbw, gain, sumSq)
	}
	w.Flush()
}

func lookup(name string) (windowEntry, bool) {
	name = strings.ToLower(name)
	for _, e := range registry {
		if e.name == name {
			return e, true
		}
	}
	return windowEntry{}, false
}
