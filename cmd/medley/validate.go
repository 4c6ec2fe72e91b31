package main

import (
	"fmt"

	"github.com/Chuabacca/Medley-AI/pkg/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema-file]",
	Short: "Check the question schema for consistency",
	Long: `Parses the schema and reports unknown question types, duplicate ids,
choice questions without options, and "next" rules pointing nowhere.`,
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
		if err := schema.Validate(s); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema is valid! ✅ (%d questions, version %s)\n", len(s.Questions), s.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// schemaPath prefers the positional argument over the configured path.
func schemaPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Schema.Path, nil
}
