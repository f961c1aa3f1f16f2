package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spektr-org/inspekt/engine"
	"github.com/spektr-org/inspekt/helpers"
	"github.com/spektr-org/inspekt/schema"
)

const defaultQuery = "SELECT * FROM inspections"

var errNoSource = errors.New("no data source: pass --file or --sqlite")

// load reads records from the configured source.
func (a *app) load(ctx context.Context) (*helpers.LoadResult, error) {
	opts := a.cfg.LoadOptions(a.logger)

	switch {
	case a.flags.file != "" && a.flags.sqlitePath != "":
		return nil, errors.New("use either --file or --sqlite, not both")

	case a.flags.file != "":
		data, err := os.ReadFile(a.flags.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		if a.flags.autoMap {
			result, d, err := helpers.ParseCSVAuto(data, opts...)
			if err != nil {
				return nil, err
			}
			a.logMapping(d.Mapping)
			return result, nil
		}
		return helpers.ParseCSV(data, a.cfg.Mapping(), opts...)

	case a.flags.sqlitePath != "":
		db, err := sql.Open("sqlite", a.flags.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		defer db.Close()
		return helpers.LoadRows(ctx, db, a.flags.query, a.cfg.Mapping(), opts...)
	}
	return nil, errNoSource
}

// dataset loads records and reports rejected rows on the log.
func (a *app) dataset(ctx context.Context) (*engine.Dataset, error) {
	result, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	if n := result.Rejected(); n > 0 {
		a.logger.Warn("rows rejected", zap.Int("rejected", n), zap.Int("rows", result.Rows))
	}
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("no usable records in %d row(s)", result.Rows)
	}
	return result.Dataset(), nil
}

// analyze loads the data and runs the full analysis for the flag filter.
func (a *app) analyze(ctx context.Context) (*engine.Report, error) {
	f, err := a.filter()
	if err != nil {
		return nil, err
	}
	ds, err := a.dataset(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Analyze(ds, f, a.engineOptions()...)
}

func (a *app) logMapping(m schema.Mapping) {
	a.logger.Info("column mapping discovered",
		zap.String("date", m.Date),
		zap.String("step", m.Step),
		zap.String("value", m.Value),
		zap.Bool("spec", m.HasSpec()),
	)
}
