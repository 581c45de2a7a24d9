package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var resultsCmd = &cobra.Command{
	Use:   "results <job-id>",
	Short: "Fetch the stored verdict for a job",
	Long: `Fetch the stored result of an analysis job.

Jobs live only in backend memory; results disappear when the backend
restarts.

Examples:
  truthlens results 3f1c9a7e-...`,
	Args: cobra.ExactArgs(1),
	RunE: runResults,
}

func runResults(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	snapshot, err := apiClient.Result(cmd.Context(), jobID)
	if err != nil {
		return fmt.Errorf("fetch results: %w", err)
	}

	if snapshot.Result == nil {
		fmt.Printf("Job %s is %s.\nUse 'truthlens watch %s' to follow progress.\n",
			jobID, snapshot.Status, jobID)
		return nil
	}

	theme := defaultTheme
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		theme = plainTheme
	}
	fmt.Print(renderResult(theme, snapshot.Result))

	return nil
}
