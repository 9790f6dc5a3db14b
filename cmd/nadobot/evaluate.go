package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"nado-trading-bot/internal/trace"
	"nado-trading-bot/internal/types"
)

// runEvaluate scores one snapshot without opening positions
func runEvaluate(cmd *cobra.Command, args []string) error {
	if err := initializeSystem(); err != nil {
		return err
	}
	defer trace.Shutdown(context.Background())

	ctx := cmd.Context()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	pcs, err := initializeSnapshot(cfg, path).Collect(ctx)
	if err != nil {
		return err
	}

	eng, err := initializeEngine(cfg, nil)
	if err != nil {
		return err
	}
	batch := eng.EvaluateAll(ctx, pcs)

	type failure struct {
		Pair  string `json:"pair"`
		Index int    `json:"index"`
		Error string `json:"error"`
	}
	out := struct {
		Decisions []types.DecisionResult `json:"decisions"`
		Failures  []failure              `json:"failures,omitempty"`
	}{Decisions: batch.Results}
	if actionableOnly {
		out.Decisions = batch.Actionable()
	}
	for _, f := range batch.Failures {
		out.Failures = append(out.Failures, failure{Pair: f.Pair, Index: f.Index, Error: f.Err.Error()})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if len(pcs) > 0 && len(batch.Results) == 0 {
		return fmt.Errorf("all %d pairs failed evaluation", len(pcs))
	}
	return nil
}
