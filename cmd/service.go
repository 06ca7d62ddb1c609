package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"

	"github.com/kozaktomas/facerec/internal/backend"
	"github.com/kozaktomas/facerec/internal/config"
	"github.com/kozaktomas/facerec/internal/database"
	"github.com/kozaktomas/facerec/internal/database/postgres"
	"github.com/kozaktomas/facerec/internal/facerec"
	"github.com/kozaktomas/facerec/internal/gallery"
	"github.com/kozaktomas/facerec/internal/imaging"
	"github.com/kozaktomas/facerec/internal/samples"
)

// loadConfig loads the configuration or fails the command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openService loads every configured model.
func openService(cfg *config.Config) (*facerec.Service, error) {
	svc, err := facerec.New(backend.FaceConfig(cfg), backend.Loaders(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	return svc, nil
}

// openRepository connects to PostgreSQL and applies migrations.
func openRepository(ctx context.Context, cfg *config.Config) (*postgres.SampleRepository, func(), error) {
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewSampleRepository(pool), func() { pool.Close() }, nil
}

// loadGallery loads enrolled samples and labels from the database when
// useDB is set, otherwise from the given files. Empty paths are skipped.
func loadGallery(ctx context.Context, cfg *config.Config, useDB bool, samplesPath, labelsPath string) ([]samples.Sample, gallery.Labels, error) {
	if useDB {
		repo, closeRepo, err := openRepository(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		defer closeRepo()
		return loadGalleryFrom(ctx, repo)
	}

	var list []samples.Sample
	labels := gallery.Labels{}
	if samplesPath != "" {
		var err error
		if list, err = gallery.LoadSamples(samplesPath); err != nil {
			return nil, nil, err
		}
	}
	if labelsPath != "" {
		var err error
		if labels, err = gallery.LoadLabels(labelsPath); err != nil {
			return nil, nil, err
		}
	}
	return list, labels, nil
}

func loadGalleryFrom(ctx context.Context, repo database.SampleReader) ([]samples.Sample, gallery.Labels, error) {
	stored, err := repo.LoadAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load samples: %w", err)
	}
	list, err := database.ToSamples(stored)
	if err != nil {
		return nil, nil, err
	}
	names, err := repo.Labels(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load labels: %w", err)
	}
	return list, gallery.Labels(names), nil
}

// detectFile decodes path and returns its faces.
func detectFile(svc *facerec.Service, path string, cnn bool) ([]*facerec.Face, error) {
	img, err := imaging.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	if cnn {
		return svc.DetectCNN(img)
	}
	return svc.Detect(img)
}

// parseRect parses "left,top,right,bottom".
func parseRect(s string) (image.Rectangle, error) {
	var l, t, r, b int
	if _, err := fmt.Sscanf(s, "%d,%d,%d,%d", &l, &t, &r, &b); err != nil {
		return image.Rectangle{}, fmt.Errorf("invalid rectangle %q, want left,top,right,bottom", s)
	}
	rect := image.Rect(l, t, r, b)
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("rectangle %q is empty", s)
	}
	return rect, nil
}

// outputJSON prints v as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func faceResult(r image.Rectangle) FaceResult {
	return FaceResult{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y}
}

func imageRect(f FaceResult) image.Rectangle {
	return image.Rect(f.Left, f.Top, f.Right, f.Bottom)
}

func formatRect(r image.Rectangle) string {
	return fmt.Sprintf("[%d,%d %dx%d]", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}
