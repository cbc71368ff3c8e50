package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/recognition"
)

var facesImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Register faces from a directory of images",
	Long: `Register every image in a directory through the normal registration pipeline.

Files must be named <studentId>_<Name>.jpg (or .jpeg/.png); underscores in the
name part become spaces. Duplicate faces and already registered student ids
are reported and skipped.

Examples:
  facereg faces import ./enrollment
  facereg faces import ./enrollment --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runFacesImport,
}

func init() {
	facesCmd.AddCommand(facesImportCmd)

	facesImportCmd.Flags().Bool("dry-run", false, "List the files that would be registered")
	facesImportCmd.Flags().Bool("json", false, "Output as JSON")
}

// importFile is an image named after the student it belongs to.
type importFile struct {
	Path        string
	StudentID   string
	StudentName string
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Total      int      `json:"total"`
	Registered int      `json:"registered"`
	Duplicates int      `json:"duplicates"`
	Existing   int      `json:"existing"`
	Failed     int      `json:"failed"`
	Skipped    []string `json:"skipped,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// parseImportName splits "<studentId>_<Name>.<ext>" into its parts.
func parseImportName(filename string) (studentID, name string, ok bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		return "", "", false
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	studentID, rest, found := strings.Cut(base, "_")
	if !found {
		return "", "", false
	}
	studentID = strings.TrimSpace(studentID)
	name = facematch.CleanDisplayName(strings.ReplaceAll(rest, "_", " "))
	if studentID == "" || name == "" {
		return "", "", false
	}
	return studentID, name, true
}

// scanImportDir returns the importable files of dir in name order and the
// files that were skipped. Only the first image of a student id is imported;
// later ones are skipped with a note naming the file they collide with.
func scanImportDir(dir string) ([]importFile, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading directory: %w", err)
	}

	var files []importFile
	var skipped []string
	first := make(map[string]importFile)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		id, name, ok := parseImportName(e.Name())
		if !ok {
			skipped = append(skipped, e.Name())
			continue
		}
		if prev, seen := first[id]; seen {
			prevFile := filepath.Base(prev.Path)
			if facematch.NameKey(prev.StudentName) == facematch.NameKey(name) {
				skipped = append(skipped, fmt.Sprintf("%s (same student as %s)", e.Name(), prevFile))
			} else {
				skipped = append(skipped, fmt.Sprintf("%s (student id %s already used by %s)", e.Name(), id, prevFile))
			}
			continue
		}
		f := importFile{Path: filepath.Join(dir, e.Name()), StudentID: id, StudentName: name}
		first[id] = f
		files = append(files, f)
	}
	return files, skipped, nil
}

func runFacesImport(cmd *cobra.Command, args []string) error {
	dryRun := mustGetBool(cmd, "dry-run")
	jsonOutput := mustGetBool(cmd, "json")

	files, skipped, err := scanImportDir(args[0])
	if err != nil {
		return err
	}
	result := ImportResult{Total: len(files), Skipped: skipped}

	if dryRun {
		if jsonOutput {
			return outputJSON(files)
		}
		for _, f := range files {
			fmt.Printf("%-20s %-30s %s\n", f.StudentID, f.StudentName, f.Path)
		}
		fmt.Printf("\n%d files to import, %d skipped\n", len(files), len(skipped))
		return nil
	}

	if len(files) == 0 {
		if jsonOutput {
			return outputJSON(result)
		}
		fmt.Println("No importable images found.")
		return nil
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Registering faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("faces"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	// Registrations are serialized in the store, so files are processed in order.
	for _, f := range files {
		importOne(ctx, a.service, f, &result)
		if bar != nil {
			bar.Add(1)
		}
	}

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Println("\nImport complete!")
	fmt.Printf("  Images:           %d\n", result.Total)
	fmt.Printf("  Registered:       %d\n", result.Registered)
	fmt.Printf("  Duplicate faces:  %d\n", result.Duplicates)
	fmt.Printf("  Already present:  %d\n", result.Existing)
	if result.Failed > 0 {
		fmt.Printf("  Failed:           %d\n", result.Failed)
		for _, e := range result.Errors {
			fmt.Printf("    %s\n", e)
		}
	}
	if len(result.Skipped) > 0 {
		fmt.Printf("  Skipped:          %d\n", len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Printf("    %s\n", s)
		}
	}
	return nil
}

func importOne(ctx context.Context, svc *recognition.Service, f importFile, result *ImportResult) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", filepath.Base(f.Path), err))
		return
	}

	res, err := svc.RegisterImage(ctx, data, f.StudentID, f.StudentName)
	switch {
	case errors.Is(err, recognition.ErrAlreadyRegistered):
		result.Existing++
	case err != nil:
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", filepath.Base(f.Path), err))
	case res.Outcome.Kind == facematch.OutcomeDuplicateRejected:
		result.Duplicates++
	default:
		result.Registered++
	}
}
