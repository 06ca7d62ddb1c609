package cmd

import (
	"fmt"

	"github.com/kozaktomas/facerec/internal/facerec"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Compute face embeddings for an image",
	Long: `Detect every face in an image and compute its 128-dimensional embedding.
With --attributes the gender and age networks are run as well.

Examples:
  facerec recognize portrait.jpg --json
  facerec recognize group.jpg --attributes`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("cnn", false, "Use the CNN detector")
	recognizeCmd.Flags().Bool("attributes", false, "Estimate gender and age")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

// RecognizeResult is one recognized face
type RecognizeResult struct {
	FaceResult
	Embedding []float32               `json:"embedding"`
	Shape     [][2]int                `json:"shape"`
	Gender    *facerec.GenderEstimate `json:"gender,omitempty"`
	Age       *facerec.AgeEstimate    `json:"age,omitempty"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cnn := mustGetBool(cmd, "cnn")
	attributes := mustGetBool(cmd, "attributes")
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

	faces, err := detectFile(svc, args[0], cnn)
	if err != nil {
		return err
	}

	results := make([]RecognizeResult, 0, len(faces))
	for _, f := range faces {
		emb, shape, err := svc.Recognize(f)
		if err != nil {
			return fmt.Errorf("face %s: %w", formatRect(f.Rectangle), err)
		}
		res := RecognizeResult{
			FaceResult: faceResult(f.Rectangle),
			Embedding:  emb.Slice(),
		}
		for _, p := range shape {
			res.Shape = append(res.Shape, [2]int{p.X, p.Y})
		}
		if attributes {
			g, err := svc.Gender(f)
			if err != nil {
				return fmt.Errorf("gender: %w", err)
			}
			a, err := svc.Age(f)
			if err != nil {
				return fmt.Errorf("age: %w", err)
			}
			res.Gender, res.Age = &g, &a
		}
		results = append(results, res)
	}

	if jsonOutput {
		return outputJSON(results)
	}

	fmt.Printf("%s: %d face(s)\n", args[0], len(results))
	for i, res := range results {
		fmt.Printf("  #%d  left=%d top=%d right=%d bottom=%d  embedding[0:4]=%.4f\n",
			i+1, res.Left, res.Top, res.Right, res.Bottom, res.Embedding[:4])
		if res.Gender != nil {
			fmt.Printf("      gender=%s (%.2f)  age=%d (%.2f)\n",
				res.Gender.Label, res.Gender.Confidence, res.Age.Years, res.Age.Confidence)
		}
	}
	return nil
}
