package facerec

import "github.com/kozaktomas/facerec/internal/imaging"

// Config holds model paths and tuning parameters.
type Config struct {
	DetectorModel    string `yaml:"detector_model"`
	CNNDetectorModel string `yaml:"cnn_detector_model"`
	ShapeModel       string `yaml:"shape_model"`
	EmbeddingModel   string `yaml:"embedding_model"`
	GenderModel      string `yaml:"gender_model"`
	AgeModel         string `yaml:"age_model"`

	// Size is the side of the aligned face chip in pixels.
	Size int `yaml:"size"`
	// Padding is the margin added around the face in the chip, as a fraction of its size.
	Padding float64 `yaml:"padding"`
	// Jittering is the number of perturbed chips averaged per embedding. 0 disables it.
	Jittering int `yaml:"jittering"`
	// MinImageSize is the minimum image area for detection; smaller images are
	// upsampled. It is capped at imaging.MaxUpsampleArea.
	MinImageSize int `yaml:"min_image_size"`
}

// DefaultConfig returns the default tuning with no models configured.
func DefaultConfig() Config {
	return Config{
		Size:    150,
		Padding: 0.25,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Size <= 0 {
		c.Size = d.Size
	}
	if c.Padding < 0 {
		c.Padding = d.Padding
	}
	if c.Jittering < 0 {
		c.Jittering = 0
	}
	c.MinImageSize = max(0, min(c.MinImageSize, imaging.MaxUpsampleArea))
	return c
}
