package onnx

import (
	"fmt"
	"image"
)

// Classifier is a softmax network over face chips, used for the gender and
// age models.
type Classifier struct {
	net     *network
	classes int
}

// LoadClassifier opens a network with a single output of the given number of classes.
func LoadClassifier(path string, classes, inputSize int) (*Classifier, error) {
	net, err := openNetwork(path, inputSize)
	if err != nil {
		return nil, err
	}
	if got := len(net.outputs[0].GetData()); got != classes {
		_ = net.Close()
		return nil, fmt.Errorf("model %s produces %d classes, expected %d", path, got, classes)
	}
	return &Classifier{net: net, classes: classes}, nil
}

// Predict returns the class probabilities for chip.
func (c *Classifier) Predict(chip image.Image) ([]float32, error) {
	res, err := c.net.run(chip, chip.Bounds(), unit)
	if err != nil {
		return nil, err
	}
	return probabilities(res[0]), nil
}

func (c *Classifier) Close() error { return c.net.Close() }
