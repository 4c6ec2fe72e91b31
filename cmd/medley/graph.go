package main

import (
	"fmt"

	"github.com/Chuabacca/Medley-AI/internal/cli"
	"github.com/Chuabacca/Medley-AI/internal/presentation/graph"
	"github.com/Chuabacca/Medley-AI/pkg/schema"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [schema-file]",
	Short: "Export the question graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the question schema.
With --session, answered questions and the current one are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := schemaPath(cmd, args)
		if err != nil {
			return err
		}
		s, err := schema.Load(path)
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, _, closer, err := cli.NewStore(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}
			snap, err := store.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", sessionID, err)
			}
			overlay = graph.OverlayFromSnapshot(snap)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(s, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the progress of this session")
}
