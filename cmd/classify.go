package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/facerec/internal/classify"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <image>...",
	Short: "Identify the people in images",
	Long: `Detect and recognize every face in the given images and classify each
one against the enrolled gallery.

The gallery comes from PostgreSQL with --db, otherwise from the files written
by enroll. --tolerance discards gallery samples closer than the given squared
distance (FACEREC_TOLERANCE by default).

Examples:
  facerec classify --samples samples.json --labels labels.json photo.jpg
  facerec classify --db --tolerance 0.01 a.jpg b.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().Bool("db", false, "Load the gallery from PostgreSQL")
	classifyCmd.Flags().String("samples", "samples.json", "Samples JSON file written by enroll")
	classifyCmd.Flags().String("labels", "labels.json", "Labels JSON file written by enroll")
	classifyCmd.Flags().Float64("tolerance", -1, "Minimum sample distance (negative = use config)")
	classifyCmd.Flags().Bool("cnn", false, "Use the CNN detector")
	classifyCmd.Flags().Bool("json", false, "Output as JSON")
}

// ClassifyResult is one classified face
type ClassifyResult struct {
	File     string     `json:"file"`
	Face     FaceResult `json:"face"`
	Category int        `json:"category"`
	Name     string     `json:"name"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	useDB := mustGetBool(cmd, "db")
	tolerance := mustGetFloat64(cmd, "tolerance")
	cnn := mustGetBool(cmd, "cnn")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if tolerance < 0 {
		tolerance = cfg.Classify.Tolerance
	}

	ctx := context.Background()
	list, labels, err := loadGallery(ctx, cfg, useDB, mustGetString(cmd, "samples"), mustGetString(cmd, "labels"))
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return errors.New("the gallery is empty, run enroll first")
	}

	svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.SetSampleSet(list)

	if !jsonOutput {
		fmt.Printf("Gallery: %d samples, %d people\n", len(list), len(labels))
	}

	var results []ClassifyResult
	for _, path := range args {
		faces, err := detectFile(svc, path, cnn)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, f := range faces {
			emb, _, err := svc.Recognize(f)
			if err != nil {
				return fmt.Errorf("%s: face %s: %w", path, formatRect(f.Rectangle), err)
			}
			cat := svc.ClassifyTolerance(emb, tolerance)
			name := "no match"
			if cat != classify.NoMatch {
				name = labels.Name(cat)
			}
			results = append(results, ClassifyResult{
				File:     path,
				Face:     faceResult(f.Rectangle),
				Category: cat,
				Name:     name,
			})
		}
	}

	if jsonOutput {
		return outputJSON(results)
	}
	for _, res := range results {
		fmt.Printf("%s %s: %s\n", res.File, formatRect(imageRect(res.Face)), res.Name)
	}
	return nil
}
