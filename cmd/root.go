package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facerec",
	Short: "Face detection, recognition and classification",
	Long: `facerec detects faces in images, computes 128-dimensional face
embeddings and classifies them against an enrolled gallery of known people.

Models are configured with FACEREC_* environment variables, a .env file or
a YAML file named by FACEREC_CONFIG. The same service is available over
HTTP with the serve command.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
