package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Chuabacca/Medley-AI/internal/cli"
	"github.com/Chuabacca/Medley-AI/internal/presentation/tui"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/Chuabacca/Medley-AI/pkg/schema"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored consultations",
	Long:  `List, inspect, and remove consultations held by the configured session store.`,
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store ports.SessionStore) error {
			sessions, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("error listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No stored sessions found.")
				return nil
			}

			fmt.Fprintln(out, "Stored Sessions:")
			for _, id := range sessions {
				snap, err := store.Load(ctx, id)
				if err != nil {
					fmt.Fprintf(out, "- %s (unreadable: %v)\n", id, err)
					continue
				}
				fmt.Fprintf(out, "- %s [%s]\n", id, snap.Status)
			}
			return nil
		})
	},
}

var sessionShowCmd = &cobra.Command{
	Use:     "show <session-id>",
	Aliases: []string{"inspect"},
	Short:   "Show a stored session",
	Long:    `Prints the collected answers, or the whole snapshot with --json.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(cmd, func(ctx context.Context, store ports.SessionStore) error {
			snap, err := store.Load(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", sessionID, err)
			}
			out := cmd.OutOrStdout()

			if asJSON {
				data, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("error marshaling session: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Session %s: %s", snap.SessionID, snap.Status)
			if snap.CurrentQuestionID != "" {
				fmt.Fprintf(out, " at '%s'", snap.CurrentQuestionID)
			}
			fmt.Fprintf(out, " (%d messages)\n\n", len(snap.Messages))
			fmt.Fprint(out, tui.RenderResults(schema.LoadOrEmpty(cfg.Schema.Path, nil), snap))
			return nil
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		return withStore(cmd, func(ctx context.Context, store ports.SessionStore) error {
			ids := args
			if all {
				var err error
				if ids, err = store.List(ctx); err != nil {
					return fmt.Errorf("error listing sessions: %w", err)
				}
			}
			return removeSessions(ctx, cmd.OutOrStdout(), store, ids)
		})
	},
}

func removeSessions(ctx context.Context, out io.Writer, store ports.SessionStore, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := store.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
			continue
		}
		fmt.Fprintf(out, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionShowCmd.Flags().Bool("json", false, "Print the raw snapshot")
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}

// withStore opens the configured session store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(context.Context, ports.SessionStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, _, closer, err := cli.NewStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	return fn(ctx, store)
}
