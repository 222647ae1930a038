package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stellarsynth/stellarsynth/pkg/config"
	"github.com/stellarsynth/stellarsynth/pkg/stores"
)

func newRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Inspect past runs in the run store",
		Long: `List recent runs from the configured run store, or show every job of a
single run: its point, terminal status and failure reason.`,
		Example: `  # Recent runs, newest first
  synth runs

  # Every job of one run
  synth runs 1b4e28ba-2fa1-11ed-a261-0242ac120002`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Run.StorePath == "" {
				return fmt.Errorf("no run store configured (run.store_path)")
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, args[0])
			}
			return listRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	return cmd
}

func listRuns(cmd *cobra.Command, store stores.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(runs)
	}
	fmt.Printf("%-36s  %-10s  %7s  %9s  %6s  %s\n",
		"RUN", "STATUS", "POINTS", "SUCCEEDED", "FAILED", "STARTED")
	for _, run := range runs {
		fmt.Printf("%-36s  %-10s  %7d  %9d  %6d  %s\n",
			run.ID, run.Status, run.Points, run.Succeeded, run.Failed,
			run.StartedAt.Format(time.RFC3339))
	}
	return nil
}

func showRun(cmd *cobra.Command, store stores.Store, runID string) error {
	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	jobs, err := store.ListJobs(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(struct {
			Run  *stores.Run  `json:"run"`
			Jobs []stores.Job `json:"jobs"`
		}{run, jobs})
	}

	fmt.Printf("Run %s: %s, %d points, %d succeeded, %d failed\n",
		run.ID, run.Status, run.Points, run.Succeeded, run.Failed)
	for _, job := range jobs {
		line := fmt.Sprintf("  %-40s  %-7s", job.ID, job.Status)
		if job.Interpolated {
			line += "  interpolated"
		}
		if job.Reason != nil {
			line += "  " + *job.Reason
		}
		fmt.Println(line)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
