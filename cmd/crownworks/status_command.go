package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"crownworks/internal/config"
	"crownworks/internal/store"
)

type daemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"database_path"`
	LibraryCount int            `json:"library_count"`
	CachedPages  int            `json:"cached_pages"`
	Jobs         map[string]int `json:"jobs"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if status, err := fetchDaemonStatus(cfg); err == nil {
				printDaemonStatus(cmd, status)
				return nil
			}

			// Daemon unreachable; report queue counts straight from the
			// database instead.
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				counts, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon: not running")
				printJobCounts(cmd, toStringCounts(counts))
				return nil
			})
		},
	}
}

func fetchDaemonStatus(cfg *config.Config) (*daemonStatus, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + cfg.Paths.APIBind + "/api/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}
	var status daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func printDaemonStatus(cmd *cobra.Command, status *daemonStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Daemon: running (pid %d)\n", status.PID)
	fmt.Fprintf(out, "Database: %s\n", status.DatabasePath)
	fmt.Fprintf(out, "Library records: %d\n", status.LibraryCount)
	fmt.Fprintf(out, "Cached pages: %d\n", status.CachedPages)
	printJobCounts(cmd, status.Jobs)
}

func printJobCounts(cmd *cobra.Command, counts map[string]int) {
	rows := make([][]string, 0, len(counts))
	for _, status := range store.AllStatuses() {
		rows = append(rows, []string{string(status), formatCount(counts[string(status)])})
	}
	output := renderRows(
		[]string{"STATUS", "JOBS"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)
	fmt.Fprintln(cmd.OutOrStdout(), output)
}

func toStringCounts(counts map[store.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	return out
}
