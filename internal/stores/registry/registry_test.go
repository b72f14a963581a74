package registry_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/internal/stores/registry"
	"github.com/agentstation/casesync/internal/stores/rest"
	"github.com/agentstation/casesync/internal/stores/sqlite"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/store"
	"github.com/agentstation/casesync/pkg/store/memory"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name  string
		cfg   registry.Config
		check func(t *testing.T, s store.Store)
	}{
		{
			name: "memory",
			cfg:  registry.Config{Kind: registry.KindMemory},
			check: func(t *testing.T, s store.Store) {
				assert.IsType(t, &memory.Store{}, s)
			},
		},
		{
			name: "rest",
			cfg:  registry.Config{Kind: "REST", URL: "https://example.my.salesforce.com", Token: "t"},
			check: func(t *testing.T, s store.Store) {
				assert.IsType(t, &rest.Store{}, s)
			},
		},
		{
			name: "sqlite",
			cfg:  registry.Config{Kind: registry.KindSQLite, Path: filepath.Join(t.TempDir(), "c.db")},
			check: func(t *testing.T, s store.Store) {
				require.IsType(t, &sqlite.Store{}, s)
				_, ok := s.(store.Purger)
				assert.True(t, ok)
				assert.NoError(t, s.(store.Closer).Close())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := registry.Get(tt.cfg)
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestGetErrors(t *testing.T) {
	_, err := registry.Get(registry.Config{Kind: "mongo"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "memory, rest, sqlite")

	_, err = registry.Get(registry.Config{Kind: registry.KindREST})
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestList(t *testing.T) {
	assert.Equal(t, []registry.Kind{"memory", "rest", "sqlite"}, registry.List())
	assert.True(t, registry.Has(registry.KindSQLite))
	assert.False(t, registry.Has("mongo"))
}
