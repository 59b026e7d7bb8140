package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/run-bigpig/agent-guard/pkg/session"
)

var chatUserID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the guarded agent in the terminal",
	Long: `Start an interactive conversation. The whole conversation is one
session and every line is one turn in it; type "exit" or press Ctrl-D to quit.`,
	RunE: chatCommand,
}

func init() {
	chatCmd.Flags().StringVar(&chatUserID, "user", "local", "User id the session belongs to")
	rootCmd.AddCommand(chatCmd)
}

func chatCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	runner, err := a.newAgent(ctx, cfg)
	if err != nil {
		return err
	}

	return chatLoop(ctx, runner, session.NewSessionID(), cmd.InOrStdin(), cmd.OutOrStdout())
}

// textRunner runs one turn of plain text
type textRunner interface {
	RunText(ctx context.Context, userID, sessionID, text string) (string, error)
}

// chatLoop runs every input line as a turn of the same session
func chatLoop(ctx context.Context, runner textRunner, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Session %s. Type \"exit\" to quit.\n", sessionID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := runner.RunText(ctx, chatUserID, sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply)
	}
}
