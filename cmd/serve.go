package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/facerec/internal/database"
	"github.com/kozaktomas/facerec/internal/gallery"
	"github.com/kozaktomas/facerec/internal/samples"
	"github.com/kozaktomas/facerec/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the face recognition HTTP API.

The enrolled gallery is loaded from PostgreSQL when DATABASE_URL is set,
otherwise from the --samples and --labels files when given. Without either
the server starts with an empty gallery that can be filled with
PUT /api/v1/samples.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("samples", "", "Samples JSON file written by enroll")
	serveCmd.Flags().String("labels", "", "Labels JSON file written by enroll")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	fmt.Println("Loading models...")
	svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	var repo database.SampleWriter
	if cfg.Database.URL != "" {
		fmt.Println("Connecting to PostgreSQL...")
		r, closeRepo, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeRepo()
		repo = r
	}

	var list []samples.Sample
	var labels gallery.Labels
	if repo != nil {
		list, labels, err = loadGalleryFrom(ctx, repo)
	} else {
		list, labels, err = loadGallery(ctx, cfg, false, mustGetString(cmd, "samples"), mustGetString(cmd, "labels"))
	}
	if err != nil {
		return err
	}
	svc.SetSampleSet(list)
	fmt.Printf("Gallery: %d samples, %d people\n", svc.SampleCount(), len(labels))

	server := web.NewServer(cfg, svc, repo, labels)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting facerec API on http://%s:%d/api/v1\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
