package vision

import (
	"context"
	"errors"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ErrModelNotFound = errors.New("model artifact not found")
	ErrModelShape    = errors.New("model signature mismatch")
)

// Classifier maps a preprocessed tensor to one raw score per class.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Predict(ctx context.Context, t *Tensor) ([]float32, error)
	Close() error
}

// ONNXClassifier runs a frozen ONNX export of the document model.
// The session is bound to one input and one output tensor, so runs are
// serialized through a single-slot semaphore.
type ONNXClassifier struct {
	sem chan struct{}

	modelPath string
	classes   int

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNXClassifier loads the model eagerly. It fails when the file is missing,
// the runtime cannot start, the input is not (1,256,256,3) float32, or the
// output does not hold exactly `classes` scores.
func NewONNXClassifier(modelPath, onnxLibPath string, classes int) (*ONNXClassifier, error) {
	info, err := os.Stat(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelNotFound, modelPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrModelNotFound, modelPath)
	}

	if onnxLibPath != "" {
		ort.SetSharedLibraryPath(onnxLibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx init environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("%w: want 1 input and 1 output, got %d and %d", ErrModelShape, len(inputs), len(outputs))
	}
	if inputs[0].DataType != ort.TensorElementDataTypeFloat || outputs[0].DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("%w: input and output must be float32", ErrModelShape)
	}

	inputShape := concreteShape(inputs[0].Dimensions)
	if !matchesInput(inputShape) {
		return nil, fmt.Errorf("%w: input %v, want %v", ErrModelShape, inputShape, InputShape)
	}
	outputShape := concreteShape(outputs[0].Dimensions)
	if outputShape.FlattenedSize() != int64(classes) {
		return nil, fmt.Errorf("%w: output %v does not hold %d scores", ErrModelShape, outputShape, classes)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("onnx new input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		outputTensor.Destroy()
		inputTensor.Destroy()
		return nil, fmt.Errorf("onnx new session: %w", err)
	}

	return &ONNXClassifier{
		sem:       make(chan struct{}, 1),
		modelPath: modelPath,
		classes:   classes,
		session:   session,
		input:     inputTensor,
		output:    outputTensor,
	}, nil
}

// Predict copies t into the bound input tensor, runs the session and returns a
// copy of the output scores.
func (c *ONNXClassifier) Predict(ctx context.Context, t *Tensor) ([]float32, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	inData := c.input.GetData()
	if len(inData) != len(t.Data) {
		return nil, fmt.Errorf("%w: input tensor holds %d values, got %d", ErrTensorShape, len(inData), len(t.Data))
	}
	copy(inData, t.Data)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	out := c.output.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

func (c *ONNXClassifier) ModelPath() string {
	return c.modelPath
}

func (c *ONNXClassifier) Close() error {
	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Destroy())
	}
	if c.input != nil {
		errs = append(errs, c.input.Destroy())
	}
	if c.output != nil {
		errs = append(errs, c.output.Destroy())
	}
	errs = append(errs, ort.DestroyEnvironment())
	return errors.Join(errs...)
}

// concreteShape replaces dynamic (non-positive) dimensions, such as the batch
// axis of a Keras export, with 1.
func concreteShape(dims ort.Shape) ort.Shape {
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}

func matchesInput(shape ort.Shape) bool {
	if len(shape) != len(InputShape) {
		return false
	}
	for i, d := range shape {
		if d != int64(InputShape[i]) {
			return false
		}
	}
	return true
}

// ArgMax returns the index and value of the highest score, or -1 for an empty slice.
// Ties resolve to the lowest index.
func ArgMax(scores []float32) (int, float32) {
	if len(scores) == 0 {
		return -1, 0
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, scores[best]
}
