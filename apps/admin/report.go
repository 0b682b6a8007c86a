package main

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grade"
)

var errUnknownKind = errors.New("kind must be one of periodic, yearly or masters")

// report builds a report and writes it to cli.out as indented JSON.
func (cli *commandLine) report(kind string, rq grade.ReportQuery) error {
	ctx := context.Background()
	if err := rq.Validate(cli.validate); err != nil {
		return err
	}

	var (
		report interface{}
		err    error
	)
	switch kind {
	case "periodic":
		report, err = cli.gradeSvc.PeriodicReport(ctx, rq)
	case "yearly":
		report, err = cli.gradeSvc.YearlyReport(ctx, rq)
	case "masters":
		report, err = cli.gradeSvc.MastersReport(ctx, rq)
	default:
		return errUnknownKind
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
