package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var analyzeNoWatch bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Upload an image and watch the analysis live",
	Long: `Upload an image to the TruthLens backend and stream the analysis
progress as it runs.

The verdict is printed once the pipeline completes. Pass --no-watch to
submit the upload and exit immediately; fetch the verdict later with
'truthlens results <job-id>'.

Examples:
  truthlens analyze photo.jpg
  truthlens analyze suspicious.png --no-watch
  truthlens analyze photo.jpg --plain`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeNoWatch, "no-watch", false, "submit the upload without watching progress")
	analyzeCmd.Flags().BoolVar(&plainOutput, "plain", false, "line-based output without the interactive UI")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	jobID, err := apiClient.Analyze(ctx, args[0])
	if err != nil {
		return fmt.Errorf("submit upload: %w", err)
	}

	logger.Info("upload accepted", "job_id", jobID)

	if analyzeNoWatch {
		fmt.Printf("Job %s submitted.\nUse 'truthlens watch %s' to follow progress.\n", jobID, jobID)
		return nil
	}

	return watchJob(ctx, jobID)
}
