package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes the library (or one --kind) to the directory given as the first argument.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.StringArg("path")
	if dir == "" {
		return fmt.Errorf("%w: export needs a target directory", shared.ErrMissingArgument)
	}

	kind, single, err := parseKind(cmd)
	if err != nil {
		return err
	}

	catalog, err := r.Catalog(ctx)
	if err != nil {
		return err
	}

	engine := tasks.NewLibraryEngine(catalog, shared.WithLogger(r.logger, "op", "export"), r.taskOptions()...)
	r.logger.Info("exporting library", "dir", dir, "run", engine.RunID())

	var report *tasks.Report
	if single {
		report, err = engine.Export(ctx, kind, dir)
	} else {
		report, err = engine.ExportAll(ctx, dir)
	}

	return errors.Join(err, r.writeReport(report))
}

// Import merges the directory or .xspf file given as the first argument into the library.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: import needs a directory or .xspf file", shared.ErrMissingArgument)
	}

	catalog, err := r.Catalog(ctx)
	if err != nil {
		return err
	}

	engine := tasks.NewLibraryEngine(catalog, shared.WithLogger(r.logger, "op", "import"), r.taskOptions()...)
	r.logger.Info("importing library", "path", path, "run", engine.RunID())

	report, err := engine.Import(ctx, path)
	return errors.Join(err, r.writeReport(report))
}

// Delete empties the library (or one --kind) after one confirmation per collection kind.
func (r *Runner) Delete(ctx context.Context, cmd *cli.Command) error {
	kind, single, err := parseKind(cmd)
	if err != nil {
		return err
	}

	catalog, err := r.Catalog(ctx)
	if err != nil {
		return err
	}

	guard := tasks.NewDeletionGuard(catalog, r.Confirmer(), shared.WithLogger(r.logger, "op", "delete"), r.taskOptions()...)
	r.logger.Info("deleting library", "run", guard.RunID())

	var report *tasks.Report
	if single {
		report, err = guard.Delete(ctx, kind)
	} else {
		report, err = guard.DeleteAll(ctx)
	}

	return errors.Join(err, r.writeReport(report))
}
