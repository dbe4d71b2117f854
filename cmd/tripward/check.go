package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stranske/tripward/pkg/policy/api"
	"github.com/stranske/tripward/pkg/policy/engine"
)

var (
	checkPolicyPath  string
	checkContextPath string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a trip context against a policy file",
	Long: `Check loads a rule configuration and a trip context, runs every
configured rule, and prints the validation outcome as JSON. The exit
status is non-zero when any blocking rule fails.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkPolicyPath, "policy", "p", "", "path to the policy rules YAML file (required)")
	checkCmd.Flags().StringVarP(&checkContextPath, "context", "c", "", "path to the trip context JSON file (required)")
	checkCmd.MarkFlagRequired("policy")
	checkCmd.MarkFlagRequired("context")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	eng, err := engine.FromFile(checkPolicyPath)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}

	ctx, err := loadContext(checkContextPath)
	if err != nil {
		return err
	}

	result, err := api.Check(eng, ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if result.Status == api.StatusFail {
		os.Exit(1)
	}
	return nil
}

func loadContext(path string) (*engine.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading context: %w", err)
	}
	ctx := &engine.Context{}
	if err := json.Unmarshal(data, ctx); err != nil {
		return nil, fmt.Errorf("parsing context: %w", err)
	}
	return ctx, nil
}

func loadContexts(path string) ([]*engine.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading contexts: %w", err)
	}
	var ctxs []*engine.Context
	if err := json.Unmarshal(data, &ctxs); err != nil {
		return nil, fmt.Errorf("parsing contexts: %w", err)
	}
	return ctxs, nil
}
