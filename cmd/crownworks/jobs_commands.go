package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crownworks/internal/config"
	"crownworks/internal/fileutil"
	"crownworks/internal/store"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and enqueue media jobs",
	}
	cmd.AddCommand(newJobsListCommand(ctx))
	cmd.AddCommand(newJobsAddURLCommand(ctx))
	cmd.AddCommand(newJobsAddFileCommand(ctx))
	cmd.AddCommand(newJobsRecycleCommand(ctx))
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent media jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				jobs, err := st.ListJobs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No media jobs found.")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						fmt.Sprintf("%d", job.ID),
						string(job.Type),
						string(job.Status),
						fmt.Sprintf("%d", job.Attempts),
						job.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						truncate(job.LastError, 48),
					})
				}
				output := renderRows(
					[]string{"ID", "TYPE", "STATUS", "ATTEMPTS", "CREATED", "LAST ERROR"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), output)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to show")
	return cmd
}

func newJobsAddURLCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add-url URL",
		Short: "Enqueue a media import from a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				id, err := st.EnqueueImport(cmd.Context(), store.ImportPayload{
					URL:   strings.TrimSpace(args[0]),
					Title: title,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued import job %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Display title for the imported media")
	return cmd
}

func newJobsAddFileCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add-file PATH",
		Short: "Stage a local file and enqueue it for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				source := args[0]
				info, err := os.Stat(source)
				if err != nil {
					return fmt.Errorf("stat %s: %w", source, err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", source)
				}

				originalName := filepath.Base(source)
				mimeType := mime.TypeByExtension(filepath.Ext(originalName))
				if mimeType == "" {
					return fmt.Errorf("cannot determine media type for %s", originalName)
				}

				staged := filepath.Join(cfg.Paths.UploadDir, stagedName(originalName))
				if err := fileutil.CopyFile(source, staged); err != nil {
					return fmt.Errorf("stage upload: %w", err)
				}

				id, err := st.EnqueueUpload(cmd.Context(), store.UploadPayload{
					Path:         staged,
					OriginalName: originalName,
					MimeType:     mimeType,
					Title:        title,
				})
				if err != nil {
					os.Remove(staged)
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued upload job %d (%s)\n", id, originalName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Display title for the uploaded media")
	return cmd
}

func stagedName(originalName string) string {
	return time.Now().UTC().Format("20060102-150405") + "-" + originalName
}

func newJobsRecycleCommand(ctx *commandContext) *cobra.Command {
	var stalledMinutes int

	cmd := &cobra.Command{
		Use:   "recycle",
		Short: "Return stalled processing jobs to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				minutes := stalledMinutes
				if minutes <= 0 {
					minutes = cfg.Worker.StallTimeoutMinutes
				}
				cutoff := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
				recycled, err := st.RecycleStalled(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recycled %d stalled job(s)\n", recycled)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&stalledMinutes, "stalled-minutes", 0, "Override the stall timeout in minutes")
	return cmd
}
