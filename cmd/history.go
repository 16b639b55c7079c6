package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists journal entries, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", shared.ErrInvalidArgument)
	}

	journal, err := r.Journal()
	if err != nil {
		return err
	}
	if journal == nil {
		return fmt.Errorf("%w: database.path is empty in %s, the journal is disabled", shared.ErrMissingConfig, r.configPath)
	}

	runID := cmd.String("run")
	if cmd.Bool("last") {
		if runID, err = journal.LastRunID(); err != nil {
			return err
		}
	}

	criteria := map[string]any{"limit": limit}
	if runID != "" {
		criteria["run_id"] = runID
	}

	entries, err := journal.List(criteria)
	if err != nil {
		return err
	}

	return formatter.WriteEntries(r.output, format, entries)
}
