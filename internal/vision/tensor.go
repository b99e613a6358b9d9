package vision

import (
	"errors"
	"fmt"
	"math"
)

const (
	InputSize = 256
	Channels  = 3
)

// InputShape is the NHWC shape the model consumes.
var InputShape = [4]int{1, InputSize, InputSize, Channels}

var ErrTensorShape = errors.New("tensor shape mismatch")

// Tensor is a dense float32 array in NHWC layout.
type Tensor struct {
	Shape [4]int
	Data  []float32
}

func NewTensor() *Tensor {
	return &Tensor{
		Shape: InputShape,
		Data:  make([]float32, InputShape[0]*InputShape[1]*InputShape[2]*InputShape[3]),
	}
}

// At returns the value for pixel (x, y) channel c of batch item 0.
func (t *Tensor) At(x, y, c int) float32 {
	return t.Data[(y*t.Shape[2]+x)*t.Shape[3]+c]
}

// Validate checks the exact shape and that every value lies in [0, 1].
func (t *Tensor) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrTensorShape)
	}
	if t.Shape != InputShape {
		return fmt.Errorf("%w: got %v, want %v", ErrTensorShape, t.Shape, InputShape)
	}
	want := InputShape[0] * InputShape[1] * InputShape[2] * InputShape[3]
	if len(t.Data) != want {
		return fmt.Errorf("%w: %d values, want %d", ErrTensorShape, len(t.Data), want)
	}
	for i, v := range t.Data {
		if math.IsNaN(float64(v)) || v < 0 || v > 1 {
			return fmt.Errorf("%w: value %v at %d outside [0,1]", ErrTensorShape, v, i)
		}
	}
	return nil
}
