package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>...",
	Short: "Detect faces in images",
	Long: `Detect faces in one or more images and print their rectangles,
ordered left to right.

Examples:
  # Frontal detector
  facerec detect group.jpg

  # CNN detector, JSON output
  facerec detect --cnn --json a.jpg b.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().Bool("cnn", false, "Use the CNN detector")
	detectCmd.Flags().Bool("json", false, "Output as JSON")
}

// DetectResult lists the faces found in one image
type DetectResult struct {
	File  string       `json:"file"`
	Faces []FaceResult `json:"faces"`
	Error string       `json:"error,omitempty"`
}

// FaceResult describes one detected face
type FaceResult struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	cnn := mustGetBool(cmd, "cnn")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	results := make([]DetectResult, 0, len(args))
	for _, path := range args {
		res := DetectResult{File: path, Faces: []FaceResult{}}
		faces, err := detectFile(svc, path, cnn)
		if err != nil {
			res.Error = err.Error()
		}
		for _, f := range faces {
			res.Faces = append(res.Faces, faceResult(f.Rectangle))
		}
		results = append(results, res)
	}

	if jsonOutput {
		return outputJSON(results)
	}

	for _, res := range results {
		if res.Error != "" {
			fmt.Printf("%s: error: %s\n", res.File, res.Error)
			continue
		}
		fmt.Printf("%s: %d face(s)\n", res.File, len(res.Faces))
		for i, f := range res.Faces {
			fmt.Printf("  #%d  left=%d top=%d right=%d bottom=%d\n", i+1, f.Left, f.Top, f.Right, f.Bottom)
		}
	}
	return nil
}
