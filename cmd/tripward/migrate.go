package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stranske/tripward/pkg/policy/engine"
	"github.com/stranske/tripward/pkg/policy/version"
)

var (
	migrateSourcePath  string
	migrateTargetPath  string
	migrateSourceLabel string
	migrateTargetLabel string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Build a migration plan between two policy versions",
	Long: `Migrate compares two rule configurations, classifies the change
(no-op, patch, feature, breaking, or config-drift), and prints a
zero-downtime migration plan. The plan is advisory; nothing is applied.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSourcePath, "from", "", "path to the source policy rules YAML file (required)")
	migrateCmd.Flags().StringVar(&migrateTargetPath, "to", "", "path to the target policy rules YAML file (required)")
	migrateCmd.Flags().StringVar(&migrateSourceLabel, "from-label", "", "semantic version label of the source policy")
	migrateCmd.Flags().StringVar(&migrateTargetLabel, "to-label", "", "semantic version label of the target policy")
	migrateCmd.MarkFlagRequired("from")
	migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(migrateCmd)
}

type migrationReport struct {
	ChangeType         version.ChangeType    `json:"change_type"`
	BackwardCompatible bool                  `json:"backward_compatible"`
	Plan               version.MigrationPlan `json:"plan"`
}

func runMigrate(cmd *cobra.Command, args []string) error {
	sourceEngine, err := engine.FromFile(migrateSourcePath)
	if err != nil {
		return fmt.Errorf("loading source policy: %w", err)
	}
	targetEngine, err := engine.FromFile(migrateTargetPath)
	if err != nil {
		return fmt.Errorf("loading target policy: %w", err)
	}

	source, err := version.FromEngine(migrateSourceLabel, sourceEngine)
	if err != nil {
		return err
	}
	target, err := version.FromEngine(migrateTargetLabel, targetEngine)
	if err != nil {
		return err
	}

	report := migrationReport{
		ChangeType:         target.ChangeType(source),
		BackwardCompatible: target.IsBackwardCompatibleWith(source),
		Plan:               version.MigrationPlanner{}.BuildPlan(source, target),
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
