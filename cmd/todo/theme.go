package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func themeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "theme",
		Short: "Toggle dark mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := "light"
			if e.shell.ToggleDarkMode(cmd.Context()) {
				mode = "dark"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s\n", mode)
			return nil
		},
	}
}
