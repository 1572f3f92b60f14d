package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"todo-chat/internal/models"
)

func chatCmd(e *env) *cobra.Command {
	var clearFirst bool
	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Talk to the assistant (interactive without arguments)",
		Long: `Send one message to the assistant, or start an interactive session when no
message is given. In the interactive session an empty line or "/quit" exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !e.shell.Snapshot().LoggedIn() {
				return fmt.Errorf("not logged in, run: todo login <username>")
			}
			r := e.renderer()
			out := cmd.OutOrStdout()

			if clearFirst {
				if err := e.shell.ClearChat(cmd.Context()); err != nil {
					return err
				}
				if len(args) == 0 {
					fmt.Fprintln(out, "Conversation cleared")
					return nil
				}
			}

			if len(args) > 0 {
				_, err := e.shell.SendMessage(cmd.Context(), strings.Join(args, " "))
				fmt.Fprintln(out, r.Transcript(e.shell.Snapshot().Transcript))
				return err
			}

			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "you › ")
				if !in.Scan() {
					return in.Err()
				}
				line := strings.TrimSpace(in.Text())
				if line == "" || line == "/quit" {
					return nil
				}
				reply, _ := e.shell.SendMessage(cmd.Context(), line)
				fmt.Fprintln(out, r.Transcript(lastReply(reply)))
				if cmd.Context().Err() != nil {
					return cmd.Context().Err()
				}
			}
		},
	}
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "forget the conversation first")
	return cmd
}

func lastReply(reply string) []models.ChatMessage {
	if reply == "" {
		return nil
	}
	return []models.ChatMessage{{Role: models.RoleAssistant, Content: reply}}
}
