package cmd

import (
	"fmt"
	"image"

	"github.com/kozaktomas/facerec/internal/imaging"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track <frame>...",
	Short: "Follow a face across a sequence of frames",
	Long: `Track one face through a sequence of frames. The face is given with
--rect on the first frame, or found with the detector when --rect is omitted
(the largest face is used).

Examples:
  facerec track --rect 120,80,220,180 frame_*.png
  facerec track frame_001.jpg frame_002.jpg frame_003.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().String("rect", "", "Initial face rectangle as left,top,right,bottom")
	trackCmd.Flags().Bool("json", false, "Output as JSON")
}

// TrackResult is the tracked position on one frame
type TrackResult struct {
	File       string     `json:"file"`
	Face       FaceResult `json:"face"`
	Confidence float64    `json:"confidence"`
}

func runTrack(cmd *cobra.Command, args []string) error {
	rectFlag := mustGetString(cmd, "rect")
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

	first, err := imaging.DecodeFile(args[0])
	if err != nil {
		return err
	}

	var rect image.Rectangle
	if rectFlag != "" {
		if rect, err = parseRect(rectFlag); err != nil {
			return err
		}
	} else {
		faces, err := svc.Detect(first)
		if err != nil {
			return err
		}
		if len(faces) == 0 {
			return fmt.Errorf("%s: no face found, pass --rect", args[0])
		}
		rects := make([]image.Rectangle, len(faces))
		for i, f := range faces {
			rects[i] = f.Rectangle
		}
		rect = rects[imaging.Largest(rects)]
	}

	tracker := svc.NewTracker()
	defer tracker.Close()
	if err := tracker.Start(first, rect); err != nil {
		return err
	}

	results := []TrackResult{{File: args[0], Face: faceResult(rect), Confidence: 1}}
	for _, path := range args[1:] {
		frame, err := imaging.DecodeFile(path)
		if err != nil {
			return err
		}
		conf, err := tracker.Update(frame)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		pos, err := tracker.Position()
		if err != nil {
			return err
		}
		results = append(results, TrackResult{File: path, Face: faceResult(pos), Confidence: conf})
	}

	if jsonOutput {
		return outputJSON(results)
	}
	for _, res := range results {
		fmt.Printf("%s %s confidence=%.3f\n", res.File, formatRect(imageRect(res.Face)), res.Confidence)
	}
	return nil
}
