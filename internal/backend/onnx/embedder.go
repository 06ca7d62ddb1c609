package onnx

import (
	"fmt"
	"image"

	"github.com/kozaktomas/facerec/internal/embedding"
)

// Embedder maps aligned face chips to 128-d vectors.
type Embedder struct {
	net *network
}

// LoadEmbedder opens an embedding network with a single 128 float output.
func LoadEmbedder(path string) (*Embedder, error) {
	net, err := openNetwork(path, 112)
	if err != nil {
		return nil, err
	}
	if got := len(net.outputs[0].GetData()); got != embedding.Dim {
		_ = net.Close()
		return nil, fmt.Errorf("embedding model %s produces %d values, expected %d", path, got, embedding.Dim)
	}
	return &Embedder{net: net}, nil
}

// Embed runs the network once per chip.
func (e *Embedder) Embed(chips []image.Image) ([]embedding.Embedding, error) {
	out := make([]embedding.Embedding, 0, len(chips))
	for _, chip := range chips {
		res, err := e.net.run(chip, chip.Bounds(), symmetric)
		if err != nil {
			return nil, err
		}
		v, err := embedding.FromSlice(res[0])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Embedder) Close() error { return e.net.Close() }
