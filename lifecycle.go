package casesync

import (
	"context"

	pkgerrors "github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/sources"
)

// collect fetches the batch of one collector and checks group ownership.
func collect(ctx context.Context, c sources.Collector) (*sources.Batch, error) {
	ctx = logging.WithSource(ctx, c.ID().String())
	logger := logging.FromContext(ctx)
	logger.Info().Msg("Fetching")

	batch, err := c.FetchAll(ctx)
	if err != nil {
		return nil, pkgerrors.NewIOError("fetch", c.ID().String(), err)
	}
	if batch == nil {
		batch = &sources.Batch{}
	}
	if err := batch.Validate(); err != nil {
		return nil, pkgerrors.WrapValidation("batch", err)
	}

	logger.Info().
		Int("persons", len(batch.Persons)).
		Int("groups", len(batch.Groups)).
		Msg("Fetched")
	return batch, nil
}

// cleanup releases collector resources, logging any error.
func cleanup(ctx context.Context, c sources.Collector) error {
	if err := c.Cleanup(); err != nil {
		logging.FromContext(logging.WithSource(ctx, c.ID().String())).Warn().
			Err(err).
			Msg("Cleanup failed")
		return pkgerrors.NewIOError("cleanup", c.ID().String(), err)
	}
	return nil
}
