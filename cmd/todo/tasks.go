package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"todo-chat/internal/app"
	"todo-chat/internal/export"
	"todo-chat/internal/models"
	"todo-chat/internal/views"
)

func tasksCmd(e *env) *cobra.Command {
	var (
		tab  string
		page int
	)
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"ls", "list"},
		Short:   "Show one page of tasks for a tab",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := views.ParseTab(tab)
			if err != nil {
				return err
			}
			if err := e.requireLogin(cmd.Context()); err != nil {
				return err
			}

			e.shell.SetTab(t)
			e.shell.GotoPage(page)

			r := e.renderer()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, r.Tabs(t))
			fmt.Fprintln(out, r.TaskPage(e.shell.CurrentPage()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&tab, "tab", "t", string(views.TabAll), "all, today, week, urgent, high or completed")
	cmd.Flags().IntVarP(&page, "page", "n", 1, "page number")
	return cmd
}

func statsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.requireLogin(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.renderer().Dashboard(e.shell.Dashboard()))
			return nil
		},
	}
}

func doneCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed (id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := e.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			if err := e.shell.Complete(cmd.Context(), task.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Completed: '%s'\n", task.Title)
			return nil
		},
	}
}

func rmCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task (id prefix is enough)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := e.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			if err := e.shell.Delete(cmd.Context(), task.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️ Deleted: '%s'\n", task.Title)
			return nil
		},
	}
}

func exportCmd(e *env) *cobra.Command {
	var (
		format string
		out    string
		tab    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks as JSON or CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := views.ParseTab(tab)
			if err != nil {
				return err
			}
			f, err := exportFormat(format, out)
			if err != nil {
				return err
			}
			if err := e.requireLogin(cmd.Context()); err != nil {
				return err
			}

			tasks := views.FilterTab(e.shell.Snapshot().Tasks, t, nowFunc())
			if out == "" {
				return export.Write(cmd.OutOrStdout(), f, tasks)
			}

			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.Write(file, f, tasks); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d task(s) to %s in %s format\n", len(tasks), out, f)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or csv (default: from --out extension, else json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&tab, "tab", "t", string(views.TabAll), "tab to export")
	return cmd
}

func exportFormat(format, out string) (export.Format, error) {
	if format != "" {
		return export.ParseFormat(format)
	}
	if f, ok := export.FormatFromPath(out); ok {
		return f, nil
	}
	return export.FormatJSON, nil
}

func (e *env) lookup(cmd *cobra.Command, ref string) (models.Task, error) {
	if err := e.requireLogin(cmd.Context()); err != nil {
		return models.Task{}, err
	}
	return app.FindTask(e.shell.Snapshot().Tasks, ref)
}
