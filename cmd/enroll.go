package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/kozaktomas/facerec/internal/constants"
	"github.com/kozaktomas/facerec/internal/database"
	"github.com/kozaktomas/facerec/internal/gallery"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <dir>",
	Short: "Build the gallery of known people from a directory",
	Long: `Enroll every image of a gallery directory. The directory holds one
sub-directory per person, named after them; the largest face of every image
becomes one sample of that person.

The samples and labels are written to JSON files, and with --db they replace
the gallery stored in PostgreSQL.

Examples:
  # Enroll with 4 concurrent workers
  facerec enroll ./people

  # Store the gallery in PostgreSQL
  facerec enroll ./people --db --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	enrollCmd.Flags().Bool("db", false, "Replace the gallery stored in PostgreSQL")
	enrollCmd.Flags().String("samples", "samples.json", "Samples JSON output file (empty = skip)")
	enrollCmd.Flags().String("labels", "labels.json", "Labels JSON output file (empty = skip)")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	useDB := mustGetBool(cmd, "db")
	samplesPath := mustGetString(cmd, "samples")
	labelsPath := mustGetString(cmd, "labels")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var repo database.SampleWriter
	if useDB {
		fmt.Println("Connecting to PostgreSQL...")
		r, closeRepo, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeRepo()
		repo = r
	}

	fmt.Printf("Scanning %s...\n", args[0])
	g, err := gallery.Scan(args[0])
	if err != nil {
		return err
	}
	if len(g.Entries) == 0 {
		return errors.New("no images found")
	}
	fmt.Printf("Found %d images of %d people\n", len(g.Entries), len(g.Labels))

	fmt.Println("Loading models...")
	svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	bar := progressbar.NewOptions(len(g.Entries),
		progressbar.OptionSetDescription("Enrolling faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	res, err := gallery.Enroll(ctx, svc, g.Entries, concurrency, func() { bar.Add(1) })
	fmt.Println()
	if err != nil {
		return fmt.Errorf("enrollment interrupted: %w", err)
	}

	fmt.Printf("\nCompleted: %d samples, %d images without a face, %d errors\n",
		len(res.Samples), res.Skipped, len(res.Errors))
	if len(res.Errors) > 0 {
		paths := make([]string, 0, len(res.Errors))
		for p := range res.Errors {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Printf("  - %s: %v\n", p, res.Errors[p])
		}
	}

	if samplesPath != "" {
		if err := gallery.SaveSamples(samplesPath, res.Samples); err != nil {
			return err
		}
		fmt.Printf("Samples written to %s\n", samplesPath)
	}
	if labelsPath != "" {
		if err := gallery.SaveLabels(labelsPath, g.Labels); err != nil {
			return err
		}
		fmt.Printf("Labels written to %s\n", labelsPath)
	}

	if repo != nil {
		labels := map[int32]string(g.Labels)
		if labels == nil {
			labels = map[int32]string{}
		}
		if err := repo.ReplaceGallery(ctx, database.FromSamples(res.Samples, res.Sources), labels); err != nil {
			return fmt.Errorf("failed to store gallery: %w", err)
		}
		count, _ := repo.Count(ctx)
		fmt.Printf("Gallery stored in PostgreSQL: %d samples\n", count)
	}

	return nil
}
