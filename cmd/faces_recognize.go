package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
)

var facesRecognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize the face in a local image",
	Long: `Run recognition on a local image file and print the ranked similarities.

Examples:
  facereg faces recognize selfie.jpg
  facereg faces recognize selfie.jpg --top 3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFacesRecognize,
}

func init() {
	facesCmd.AddCommand(facesRecognizeCmd)

	facesRecognizeCmd.Flags().Int("top", 10, "Number of ranked matches to print (0 for all)")
	facesRecognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

// RecognizeOutput is the JSON form of a recognition.
type RecognizeOutput struct {
	Outcome   facematch.OutcomeKind        `json:"outcome"`
	Message   string                       `json:"message"`
	Threshold float64                      `json:"threshold"`
	Matches   []facematch.SimilarityResult `json:"matches"`
}

func runFacesRecognize(cmd *cobra.Command, args []string) error {
	top := mustGetInt(cmd, "top")
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.service.RecognizeImage(context.Background(), data)
	if err != nil {
		return err
	}

	matches := outcome.Matches
	if top > 0 && len(matches) > top {
		matches = matches[:top]
	}

	if jsonOutput {
		return outputJSON(RecognizeOutput{
			Outcome:   outcome.Kind,
			Message:   outcome.Message,
			Threshold: a.cfg.Match.Threshold,
			Matches:   matches,
		})
	}

	fmt.Println(outcome.Message)
	if outcome.Hint != "" {
		fmt.Println(outcome.Hint)
	}
	if len(matches) == 0 {
		return nil
	}

	fmt.Printf("\n%-4s %-20s %-30s %s\n", "#", "STUDENT ID", "NAME", "SIMILARITY")
	for i, m := range matches {
		marker := ""
		if m.Score >= a.cfg.Match.Threshold {
			marker = " *"
		}
		fmt.Printf("%-4d %-20s %-30s %.4f%s\n", i+1, m.Identity, m.DisplayName, m.Score, marker)
	}
	return nil
}
