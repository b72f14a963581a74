package sync

import (
	"context"
	"fmt"
	"io"

	"github.com/agentstation/casesync/cmd/application"
	"github.com/agentstation/casesync/internal/cmd/output"
	"github.com/agentstation/casesync/pkg/reconciler"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// BuildOptions turns the flags that were set into run options. Options
// derived from configuration come first so flags win.
func BuildOptions(base []pkgsync.Option, flags *Flags, changed map[string]bool) []pkgsync.Option {
	opts := append([]pkgsync.Option{}, base...)
	if changed["dry-run"] {
		opts = append(opts, pkgsync.WithDryRun(flags.DryRun))
	}
	if changed["fail-fast"] {
		opts = append(opts, pkgsync.WithFailFast(flags.FailFast))
	}
	if changed["no-report"] {
		opts = append(opts, pkgsync.WithNoReport(flags.NoReport))
	}
	if changed["timeout"] {
		opts = append(opts, pkgsync.WithTimeout(flags.Timeout))
	}
	if changed["report-dir"] {
		opts = append(opts, pkgsync.WithReportDir(flags.ReportDir))
	}
	return opts
}

// Execute runs one sync and prints its result to w.
func Execute(ctx context.Context, app application.Application, flags *Flags, changed map[string]bool, w io.Writer) error {
	logger := app.Logger()

	syncer, err := app.Syncer()
	if err != nil {
		return err
	}
	syncer.OnEntityFailed(func(o *reconciler.Outcome, err error) {
		logger.Warn().Err(err).
			Str("kind", string(o.Kind)).
			Str("case_number", o.CaseNumber).
			Msg("Entity failed")
	})
	syncer.OnEntityAdded(func(o *reconciler.Outcome) {
		logger.Debug().Str("kind", string(o.Kind)).Str("case_number", o.CaseNumber).Str("id", o.ID).Msg("Entity created")
	})

	result, err := syncer.Sync(ctx, BuildOptions(app.SyncOptions(), flags, changed)...)
	if result != nil {
		formatter := output.NewFormatter(output.DetectFormat(app.OutputFormat()))
		if ferr := formatter.Format(w, output.NewRun(result)); ferr != nil {
			return ferr
		}
	}
	if err != nil {
		return err
	}
	if failed := result.Total(reconciler.ActionFailed); failed > 0 {
		return fmt.Errorf("%d entities failed", failed)
	}
	return nil
}
