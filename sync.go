package casesync

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/reconciler"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/report"
	"github.com/agentstation/casesync/pkg/store"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// Sync runs one collection pass: standalone persons first, then groups.
// Entity failures are collected in the result and the run continues unless
// fail-fast is set.
func (s *syncer) Sync(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Step 1: Parse and validate options
	options := pkgsync.Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Setup context with timeout and run id
	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {}
	}
	defer cancel()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithOperation(ctx, "sync")
	logger := logging.FromContext(ctx)

	started := s.config.now()
	result := pkgsync.NewResult(runID, started.Time, options.DryRun)
	logger.Info().
		Str("collector", s.collector.ID().String()).
		Bool("dry_run", options.DryRun).
		Msg("Sync started")

	// Step 3: Dry runs record writes instead of sending them
	target := s.store
	var dry *store.DryRunStore
	if options.DryRun {
		dry = store.NewDryRun(s.store, store.WithDryRunAttachmentSchema(s.config.schemas.Attachment))
		target = dry
	}

	// Step 4: Canonical labels, once per picklist field
	labels, err := fetchLabels(ctx, target, s.config.schemas)
	if err != nil {
		return nil, fmt.Errorf("fetching picklist labels: %w", err)
	}

	// Step 5: Collect
	batch, err := collect(ctx, s.collector)
	defer func() { _ = cleanup(ctx, s.collector) }()
	if err != nil {
		return nil, err
	}
	result.Collected = batch.Len()

	// Step 6: Report, closed on every exit path
	recOpts := []reconciler.Option{
		reconciler.WithSchemas(s.config.schemas),
		reconciler.WithContactAccount(s.config.contactAccount),
		reconciler.WithDateWindow(s.config.dateWindow),
	}
	for field, values := range labels {
		recOpts = append(recOpts, reconciler.WithPicklistLabels(field, values))
	}
	if !options.NoReport {
		w, err := report.Open(options.ReportDir, started)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := w.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Str("path", w.Path()).Msg("Could not close report")
			}
		}()
		result.ReportPath = w.Path()
		recOpts = append(recOpts, reconciler.WithReporter(w))
	}

	recon, err := reconciler.New(target, recOpts...)
	if err != nil {
		return nil, err
	}

	// Step 7: Reconcile standalone persons, then groups with their members
	entities := make([]records.Entity, 0, len(batch.Persons)+len(batch.Groups))
	for _, p := range batch.Standalone() {
		entities = append(entities, p)
	}
	for _, g := range batch.Groups {
		entities = append(entities, g)
	}

	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			result.Duration = s.elapsed(started)
			stopErr := interrupted(err, options.Timeout)
			result.Errors = append(result.Errors, stopErr)
			logger.Error().Err(stopErr).Msg("Sync interrupted")
			return result, stopErr
		}

		outcome, err := recon.Upsert(ctx, e)
		if outcome == nil {
			outcome = failedOutcome(e, s.config.schemas)
			outcome.Err = err
		}
		result.Record(outcome)
		s.trigger(outcome, err)

		if err != nil {
			result.Errors = append(result.Errors, err)
			logger.Error().Err(err).
				Str("case_number", outcome.CaseNumber).
				Str("kind", outcome.Kind.String()).
				Msg("Entity failed")
			if options.FailFast {
				result.Duration = s.elapsed(started)
				return result, err
			}
		}
	}

	// Step 8: Summary
	result.Duration = s.elapsed(started)
	event := logger.Info().
		Int("created", result.Total(reconciler.ActionCreated)).
		Int("updated", result.Total(reconciler.ActionUpdated)).
		Int("unchanged", result.Total(reconciler.ActionUnchanged)).
		Int("failed", result.Total(reconciler.ActionFailed)).
		Dur("duration", result.Duration)
	if dry != nil {
		event = event.Int("recorded_writes", len(dry.Writes()))
	}
	event.Msg("Sync completed")

	return result, nil
}

// failedOutcome describes an entity rejected before reconciliation started.
func failedOutcome(e records.Entity, schemas records.Schemas) *reconciler.Outcome {
	o := &reconciler.Outcome{Action: reconciler.ActionFailed}
	if e == nil {
		return o
	}
	o.Kind = e.Kind()
	if schema, ok := schemas.For(e.Kind()); ok {
		o.CaseNumber = e.String(schema.CaseNumberField)
		o.Name = e.String(schema.NameField)
	}
	return o
}

// interrupted converts a context error into the casesync error taxonomy.
func interrupted(err error, timeout time.Duration) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError("sync", timeout.String(), err.Error())
	}
	return fmt.Errorf("%w: %v", errors.ErrCanceled, err)
}

// elapsed is measured on the configured clock.
func (s *syncer) elapsed(started utc.Time) time.Duration {
	return s.config.now().Time.Sub(started.Time)
}
