package main

import (
	"context"
	"errors"
	"os"

	"github.com/Chuabacca/Medley-AI/internal/cli"
	"github.com/Chuabacca/Medley-AI/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run a consultation in the terminal",
	Long: `Starts a consultation, or resumes the one named by --session.

Quick replies are numbered; type the number or your own words. Ctrl+C while the
clinic is typing cancels that reply. End of input (Ctrl+D) saves the session.

With --json, stdin takes one answer per line and stdout carries NDJSON events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")
		fresh, _ := cmd.Flags().GetBool("fresh")
		noBanner, _ := cmd.Flags().GetBool("no-banner")

		ctx := cmd.Context()
		interactive := runner.IsTerminal(os.Stdin) && runner.IsTerminal(os.Stdout)
		if jsonMode || !interactive {
			// The runner only owns Ctrl+C in interactive text mode.
			sc := cli.NewSignalContext(ctx)
			defer sc.Stop()
			ctx = sc
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, cleanup, err := openApp(cmd, cfg, cli.LogInteractive)
		if err != nil {
			return err
		}
		defer cleanup()

		_, err = app.Chat(ctx, cli.ChatOptions{
			SessionID: sessionID,
			JSON:      jsonMode,
			Fresh:     fresh,
			NoBanner:  noBanner,
			In:        os.Stdin,
			Out:       os.Stdout,
		})
		if errors.Is(err, context.Canceled) {
			// Exit 0 for interruptions
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("session", "s", "", "Session id to start or resume (generated when empty)")
	chatCmd.Flags().Bool("json", false, "Exchange NDJSON events instead of text")
	chatCmd.Flags().Bool("fresh", false, "Discard the stored session before starting")
	chatCmd.Flags().Bool("no-banner", false, "Do not print the banner")
}
