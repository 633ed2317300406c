package window_test

import (
	"fmt"

	"github.com/cwbudde/algo-oma/dsp/window"
)

func ExampleGenerate() {
	w := window.Generate(window.TypeHann, 5)
	for _, v := range w {
		fmt.Printf("%.2f ", v)
	}
	fmt.Println()
	// Output: 0.00 0.50 1.00 0.50 0.00
}

func ExampleEquivalentNoiseBandwidth() {
	w := window.Generate(window.TypeRectangular, 256)
	enbw, _ := window.EquivalentNoiseBandwidth(w)
	fmt.Printf("%.1f bins\n", enbw)
	// Output: 1.0 bins
}
