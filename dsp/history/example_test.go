package history_test

import (
	"fmt"

	"github.com/cwbudde/algo-phase/dsp/history"
)

func ExampleBuffer() {
	b, _ := history.New(4)
	b.Push([]float64{1, 2, 3, 4})
	b.Push([]float64{5, 6})

	window := make([]float64, b.Len())
	b.Snapshot(window)

	fmt.Println(window)
	fmt.Println(b.Full())

	// Output:
	// [3 4 5 6]
	// true
}
