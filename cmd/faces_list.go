package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered faces",
	Long: `List every registered face with its validity and the first values of its embedding.

Records that cannot be compared (missing, malformed, wrong dimension, NaN) are
listed with the reason they are skipped during matching.`,
	Args: cobra.NoArgs,
	RunE: runFacesList,
}

func init() {
	facesCmd.AddCommand(facesListCmd)

	facesListCmd.Flags().Bool("json", false, "Output as JSON")
}

// FaceListEntry is one line of the list output.
type FaceListEntry struct {
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Valid       bool      `json:"valid"`
	Sample      []float32 `json:"sample,omitempty"`
	Error       string    `json:"error,omitempty"`
}

func runFacesList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	inspections, err := a.service.Inspect(context.Background())
	if err != nil {
		return fmt.Errorf("listing faces: %w", err)
	}

	entries := make([]FaceListEntry, 0, len(inspections))
	var invalid int
	for _, in := range inspections {
		e := FaceListEntry{StudentID: in.StudentID, StudentName: in.StudentName, Valid: in.Err == nil, Sample: in.Sample}
		if in.Err != nil {
			e.Error = in.Err.Error()
			invalid++
		}
		entries = append(entries, e)
	}

	if jsonOutput {
		return outputJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No faces registered.")
		return nil
	}

	fmt.Printf("%-20s %-30s %s\n", "STUDENT ID", "NAME", "EMBEDDING")
	for _, e := range entries {
		if e.Valid {
			fmt.Printf("%-20s %-30s %v\n", e.StudentID, e.StudentName, e.Sample)
		} else {
			fmt.Printf("%-20s %-30s INVALID: %s\n", e.StudentID, e.StudentName, e.Error)
		}
	}
	fmt.Printf("\n%d faces, %d invalid\n", len(entries), invalid)
	return nil
}
