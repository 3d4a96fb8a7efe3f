package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olgkv/tasktracker/internal/app"
	"github.com/olgkv/tasktracker/internal/config"
	"github.com/olgkv/tasktracker/internal/domain"
	"github.com/olgkv/tasktracker/internal/service"
)

type cli struct {
	out        io.Writer
	errOut     io.Writer
	configPath string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:          "tasktracker",
		Short:        "Track tasks in a local JSON file",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (yaml, json or toml)")

	root.AddCommand(
		c.addCmd(),
		c.listCmd(),
		c.completeCmd(),
		c.deleteCmd(),
		c.statsCmd(),
		c.exportCmd(),
	)
	return root
}

// withManager runs fn against a freshly loaded manager and always shuts
// it down afterwards, so the final state reaches the data file.
func (c *cli) withManager(fn func(ctx context.Context, mgr *service.Manager) error) error {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, c.errOut)

	mgr, err := app.New(cfg, logger, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runErr := fn(ctx, mgr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown: %w", err))
	}
	return runErr
}

func (c *cli) addCmd() *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "add NAME...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePriority(priority)
			if err != nil {
				return err
			}
			return c.withManager(func(_ context.Context, mgr *service.Manager) error {
				t, err := mgr.AddTask(strings.Join(args, " "), p)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "added #%d %s [%s]\n", t.ID, t.Name, t.Priority)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", domain.PriorityMedium.String(), "low, medium or high")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withManager(func(_ context.Context, mgr *service.Manager) error {
				tasks := mgr.ListTasks()
				if pending {
					tasks = mgr.ListPending()
				}
				if len(tasks) == 0 {
					fmt.Fprintln(c.out, "no tasks")
					return nil
				}

				tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tCREATED\tNAME")
				for _, t := range tasks {
					st := "pending"
					if t.Completed {
						st = "done " + t.CompletedAt.Format(domain.TimeLayout)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, st, t.Priority, t.Created.Format(domain.TimeLayout), t.Name)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only tasks not yet completed")
	return cmd
}

func (c *cli) completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete ID",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withManager(func(_ context.Context, mgr *service.Manager) error {
				if !mgr.CompleteTask(id) {
					return fmt.Errorf("task %d not found", id)
				}
				fmt.Fprintf(c.out, "completed #%d\n", id)
				return nil
			})
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withManager(func(_ context.Context, mgr *service.Manager) error {
				if !mgr.DeleteTask(id) {
					return fmt.Errorf("task %d not found", id)
				}
				fmt.Fprintf(c.out, "deleted #%d\n", id)
				return nil
			})
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withManager(func(_ context.Context, mgr *service.Manager) error {
				s := mgr.Stats()
				fmt.Fprintf(c.out, "total: %d\ncompleted: %d\npending: %d\n", s.Total, s.Completed, s.Pending)
				for _, p := range domain.Priorities() {
					fmt.Fprintf(c.out, "%s: %d\n", p, s.ByPriority[p])
				}
				return nil
			})
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var asPDF bool
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export tasks to a JSON file or a PDF report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withManager(func(ctx context.Context, mgr *service.Manager) error {
				start := mgr.ExportTo
				if asPDF {
					start = mgr.ExportReport
				}
				h, err := start(args[0])
				if err != nil {
					return err
				}
				if err := h.Wait(ctx); err != nil {
					return fmt.Errorf("export %s: %w", h.Filename, err)
				}
				fmt.Fprintf(c.out, "exported to %s\n", h.Filename)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asPDF, "pdf", false, "write a PDF report instead of JSON")
	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
