package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aromalbiju/truthlens-go/internal/analysis"
	"github.com/aromalbiju/truthlens-go/internal/client"
)

var plainOutput bool

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Attach to a running analysis and stream its progress",
	Long: `Attach to an analysis job by id and stream its progress live.

Useful after 'truthlens analyze --no-watch', or to re-attach after a
dropped connection. Each job streams to at most one viewer at a time;
attaching displaces an earlier viewer.

Examples:
  truthlens watch 3f1c9a7e-...
  truthlens watch 3f1c9a7e-... --plain`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&plainOutput, "plain", false, "line-based output without the interactive UI")
}

func runWatch(cmd *cobra.Command, args []string) error {
	return watchJob(cmd.Context(), args[0])
}

// watchJob opens the live update channel for a job and renders progress
// until the session ends.
func watchJob(ctx context.Context, jobID string) error {
	ch, err := apiClient.Watch(ctx, jobID, logger)
	if err != nil {
		return fmt.Errorf("open live channel: %w", err)
	}

	if plainOutput || !term.IsTerminal(int(os.Stdout.Fd())) {
		return plainWatch(ch, jobID)
	}

	return runSessionUI(ch, jobID)
}

// plainWatch renders the session as plain lines, one per stage transition.
// Used for pipes and dumb terminals.
func plainWatch(ch *client.Channel, jobID string) error {
	defer ch.Close()

	store := analysis.NewStore()
	for ev := range ch.Events() {
		switch ev := ev.(type) {
		case analysis.ConnectivityEvent:
			if ev.State == analysis.ChannelOpen {
				fmt.Printf("connected to job %s\n", jobID)
			}
		case analysis.StepUpdateEvent:
			store.Apply(ev)
			printStageLine(store, ev)
		case analysis.ResultEvent:
			store.Apply(ev)
		}

		if store.IsComplete() {
			break
		}
	}

	result := store.Result()
	if result == nil {
		return fmt.Errorf("connection closed before a verdict arrived; try 'truthlens results %s' later", jobID)
	}

	fmt.Println()
	fmt.Print(renderResult(plainTheme, result))
	return nil
}

func printStageLine(store *analysis.Store, ev analysis.StepUpdateEvent) {
	for _, st := range store.Stages() {
		if st.ID != ev.StepID {
			continue
		}
		line := fmt.Sprintf("[%s] %s", st.Status, st.Label)
		if st.Detail != "" {
			line += ": " + st.Detail
		}
		fmt.Println(line)
		return
	}
}
