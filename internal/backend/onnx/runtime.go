// Package onnx runs face models through ONNX Runtime.
//
// Every network owns one session with fixed input and output tensors. The
// tensors are overwritten on each run, so a network must not be used from
// more than one goroutine at a time.
package onnx

import (
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// Init loads the shared library at libPath and initialises the runtime
// environment. Calling it again after success is a no-op.
func Init(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}
	return nil
}

// Pixel normalisation applied when filling an NCHW input tensor.
type normalization struct {
	mean, std float32
}

var (
	// arcFace style inputs in [-1, 1].
	symmetric = normalization{mean: 127.5, std: 128}
	// unit scales to [0, 1].
	unit = normalization{mean: 0, std: 255}
)

// network is one session with a single float input and one or more float outputs.
type network struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	outputs []*ort.Tensor[float32]
	shapes  []ort.Shape
	width   int
	height  int
}

// openNetwork creates a session for the model at path. Dynamic dimensions
// are fixed to 1 for the batch and to fallback for the spatial axes.
func openNetwork(path string, fallback int) (*network, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model %s: %w", path, err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("model %s has %d inputs, expected 1", path, len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no outputs", path)
	}

	inShape := fixShape(inputs[0].Dimensions, fallback)
	if len(inShape) != 4 || inShape[1] != 3 {
		return nil, fmt.Errorf("model %s input shape %v is not NCHW RGB", path, inputs[0].Dimensions)
	}

	n := &network{height: int(inShape[2]), width: int(inShape[3])}
	n.input, err = ort.NewEmptyTensor[float32](inShape)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate input tensor: %w", err)
	}

	inNames := []string{inputs[0].Name}
	outNames := make([]string, 0, len(outputs))
	outValues := make([]ort.Value, 0, len(outputs))
	for _, o := range outputs {
		shape := fixShape(o.Dimensions, 1)
		t, err := ort.NewEmptyTensor[float32](shape)
		if err != nil {
			_ = n.Close()
			return nil, fmt.Errorf("failed to allocate output tensor %s: %w", o.Name, err)
		}
		n.outputs = append(n.outputs, t)
		n.shapes = append(n.shapes, shape)
		outNames = append(outNames, o.Name)
		outValues = append(outValues, t)
	}

	n.session, err = ort.NewAdvancedSession(path, inNames, outNames, []ort.Value{n.input}, outValues, nil)
	if err != nil {
		_ = n.Close()
		return nil, fmt.Errorf("failed to create session for %s: %w", path, err)
	}
	return n, nil
}

func fixShape(dims ort.Shape, fallback int) ort.Shape {
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		switch {
		case d > 0:
			out[i] = d
		case i == 0:
			out[i] = 1
		default:
			out[i] = int64(fallback)
		}
	}
	return out
}

// run fills the input from the sr region of img, resized to the network
// input, and returns the output buffers. The returned slices are only valid
// until the next run.
func (n *network) run(img image.Image, sr image.Rectangle, norm normalization) ([][]float32, error) {
	fillNCHW(n.input.GetData(), img, sr, n.width, n.height, norm)
	if err := n.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	out := make([][]float32, len(n.outputs))
	for i, t := range n.outputs {
		out[i] = t.GetData()
	}
	return out, nil
}

// Close releases the session and tensors.
func (n *network) Close() error {
	if n.session != nil {
		if err := n.session.Destroy(); err != nil {
			return err
		}
		n.session = nil
	}
	if n.input != nil {
		_ = n.input.Destroy()
		n.input = nil
	}
	for _, t := range n.outputs {
		_ = t.Destroy()
	}
	n.outputs = nil
	return nil
}
