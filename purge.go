package casesync

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/store"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// PurgeOrder is the order tables are emptied in when every kind is purged.
var PurgeOrder = []records.Kind{
	records.KindGroup,
	records.KindPerson,
	records.KindContact,
	records.KindAttachment,
}

// Purge deletes every record of the given kinds. Each kind gets an explicit
// outcome; the returned error joins the causes of every kind that did not
// complete.
func (s *syncer) Purge(ctx context.Context, kinds ...records.Kind) ([]pkgsync.PurgeOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	purger, ok := s.store.(store.Purger)
	if !ok {
		return nil, fmt.Errorf("%w: store %T cannot purge", errors.ErrNotImplemented, s.store)
	}
	if len(kinds) == 0 {
		kinds = PurgeOrder
	}
	for _, kind := range kinds {
		if s.config.schemas.Table(kind) == "" {
			return nil, &errors.ValidationError{Field: "kind", Value: kind, Message: "no table for kind"}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.purgeWait)
	defer cancel()
	ctx = logging.WithOperation(ctx, "purge")

	var errs []error
	outcomes := make([]pkgsync.PurgeOutcome, 0, len(kinds))
	for _, kind := range kinds {
		outcome := s.purgeTable(ctx, purger, kind)
		outcomes = append(outcomes, outcome)
		if outcome.Err != nil {
			errs = append(errs, outcome.Err)
		}
	}
	return outcomes, stderrors.Join(errs...)
}

func (s *syncer) purgeTable(ctx context.Context, purger store.Purger, kind records.Kind) pkgsync.PurgeOutcome {
	table := s.config.schemas.Table(kind)
	ctx = logging.WithTable(ctx, table)
	logger := logging.FromContext(ctx)

	outcome := pkgsync.PurgeOutcome{Kind: kind, Table: table, Status: pkgsync.PurgeCompleted}
	stop := func(err error) pkgsync.PurgeOutcome {
		outcome.Status = pkgsync.PurgeFailed
		if stderrors.Is(err, context.DeadlineExceeded) {
			outcome.Status = pkgsync.PurgeTimedOut
			err = errors.NewTimeoutError("purge "+table, s.config.purgeWait.String(), err.Error())
		}
		outcome.Err = err
		logger.Error().Err(err).
			Int("requested", outcome.Requested).
			Int("deleted", outcome.Deleted).
			Str("status", string(outcome.Status)).
			Msg("Purge stopped")
		return outcome
	}

	ids, err := purger.IDs(ctx, table)
	if err != nil {
		return stop(err)
	}
	outcome.Requested = len(ids)
	logger.Info().Int("requested", outcome.Requested).Msg("Purging")

	for start := 0; start < len(ids); start += s.config.deleteBatchSize {
		if err := ctx.Err(); err != nil {
			return stop(err)
		}
		end := min(start+s.config.deleteBatchSize, len(ids))
		n, err := purger.Delete(ctx, table, ids[start:end])
		outcome.Deleted += n
		if err != nil {
			return stop(err)
		}
	}

	logger.Info().Int("deleted", outcome.Deleted).Msg("Purge completed")
	return outcome
}
