package ppm

import (
	"fmt"
	"unsafe"
)

// Train builds a predictor over cfgs and feeds it every input. Inputs are
// independent streams: statistics accumulate across them but the rolling
// context restarts at each input, so no context ever spans two inputs.
func Train[S Symbol](inputs [][]S, cfgs ...OrderConfig) (*Predictor[S], error) {
	p, err := NewPredictor[S](cfgs...)
	if err != nil {
		return nil, err
	}
	for i := range inputs {
		p.Restart()
		if err := p.Train(inputs[i]); err != nil {
			return nil, fmt.Errorf("ppm: input %d: %w", i, err)
		}
	}
	return p, nil
}

// TrainStrings converts []string to [][]byte without copying and calls Train.
func TrainStrings(inputs []string, cfgs ...OrderConfig) (*Predictor[byte], error) {
	bytes := make([][]byte, len(inputs))
	for i := range inputs {
		bytes[i] = unsafe.Slice(unsafe.StringData(inputs[i]), len(inputs[i]))
	}
	return Train(bytes, cfgs...)
}
