package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stranske/tripward/pkg/policy/engine"
	"github.com/stranske/tripward/pkg/policy/version"
	"github.com/stranske/tripward/pkg/snapshot"
)

var (
	simulateCurrentPath  string
	simulateProposedPath string
	simulateContextsPath string
	simulateDiffOnly     bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay historical contexts through a proposed policy",
	Long: `Simulate runs a set of historical trip contexts through the current and
proposed rule configurations side by side and reports per-rule deltas.
Nothing is persisted; the simulation is a pure dry run.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCurrentPath, "current", "", "path to the current policy rules YAML file (required)")
	simulateCmd.Flags().StringVar(&simulateProposedPath, "proposed", "", "path to the proposed policy rules YAML file (required)")
	simulateCmd.Flags().StringVar(&simulateContextsPath, "contexts", "", "path to a JSON array of trip contexts (required)")
	simulateCmd.Flags().BoolVar(&simulateDiffOnly, "diff-only", false, "only print contexts whose results changed")
	simulateCmd.MarkFlagRequired("current")
	simulateCmd.MarkFlagRequired("proposed")
	simulateCmd.MarkFlagRequired("contexts")
	rootCmd.AddCommand(simulateCmd)
}

type simulationReport struct {
	Contexts     int                        `json:"contexts"`
	Changed      int                        `json:"changed"`
	CurrentHash  string                     `json:"current_hash"`
	ProposedHash string                     `json:"proposed_hash"`
	ChangeType   version.ChangeType         `json:"change_type"`
	Simulations  []version.SimulationResult `json:"simulations,omitempty"`
	Comparisons  []snapshot.Comparison      `json:"comparisons,omitempty"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	current, err := engine.FromFile(simulateCurrentPath)
	if err != nil {
		return fmt.Errorf("loading current policy: %w", err)
	}
	proposed, err := engine.FromFile(simulateProposedPath)
	if err != nil {
		return fmt.Errorf("loading proposed policy: %w", err)
	}

	contexts, err := loadContexts(simulateContextsPath)
	if err != nil {
		return err
	}

	currentVersion, err := version.FromEngine("", current)
	if err != nil {
		return err
	}
	proposedVersion, err := version.FromEngine("", proposed)
	if err != nil {
		return err
	}

	simulations := version.Simulate(current, proposed, contexts)

	report := simulationReport{
		Contexts:     len(simulations),
		CurrentHash:  currentVersion.ConfigHash,
		ProposedHash: proposedVersion.ConfigHash,
		ChangeType:   proposedVersion.ChangeType(currentVersion),
	}
	for _, sim := range simulations {
		comparison := snapshot.CompareResults(sim.CurrentResults, sim.ProposedResults)
		changed := comparison.HasDifferences()
		if changed {
			report.Changed++
		}
		if simulateDiffOnly && !changed {
			continue
		}
		report.Simulations = append(report.Simulations, sim)
		report.Comparisons = append(report.Comparisons, comparison)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
