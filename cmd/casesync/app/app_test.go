package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/records"
	"github.com/agentstation/casesync/pkg/sources"
	"github.com/agentstation/casesync/pkg/store/memory"
)

func testApp(t *testing.T, remote *memory.Store, persons ...*records.Person) *App {
	t.Helper()
	logger := zerolog.Nop()
	app, err := New("1.2.3", "abc123", "2024-01-01", "test",
		WithConfig(&Config{StoreKind: "memory", SourceKind: "memory"}),
		WithLogger(&logger),
		WithStore(remote),
		WithCollector(sources.NewStaticWith(persons, nil)),
	)
	require.NoError(t, err)
	return app
}

func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func person(caseNumber, name string) *records.Person {
	p := records.NewPersonAt(utc.Now())
	p.SetFields(records.Fields{"Case_Number__c": caseNumber, "Name": name})
	return p
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app := testApp(t, memory.New())

	assert.Equal(t, "1.2.3", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2024-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Config())
	assert.Empty(t, app.SyncOptions())
}

// TestApp_Syncer_Singleton verifies that Syncer() returns the same instance.
func TestApp_Syncer_Singleton(t *testing.T) {
	app := testApp(t, memory.New())

	s1, err := app.Syncer()
	require.NoError(t, err)
	s2, err := app.Syncer()
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	require.NoError(t, app.Shutdown(context.Background()))
}

func TestApp_StoreFromConfig(t *testing.T) {
	logger := zerolog.Nop()
	app, err := New("dev", "", "", "", WithLogger(&logger),
		WithConfig(&Config{StoreKind: "rest", SourceKind: "snapshot"}))
	require.NoError(t, err)

	_, err = app.Store()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.url")
}

func TestSyncCommand(t *testing.T) {
	remote := memory.New()
	app := testApp(t, remote, person("1001", "Ana"), person("1002", "Ben"))

	out, err := run(t, app, "sync", "-o", "json", "--report-dir", t.TempDir())
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "2 created, 0 updated, 0 unchanged, 0 failed", result["summary"])
	assert.NotEmpty(t, result["report_path"])
	assert.Len(t, remote.Rows("Children__c"), 2)
}

func TestSyncCommandDryRun(t *testing.T) {
	remote := memory.New()
	app := testApp(t, remote, person("1001", "Ana"))

	out, err := run(t, app, "sync", "--dry-run", "--no-report", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "(Dry run)")
	assert.Empty(t, remote.Rows("Children__c"))
}

func TestLabelsCommand(t *testing.T) {
	remote := memory.New(memory.WithLabels("Children__c", "Child_s_Nationality__c", "French", "German"))
	app := testApp(t, remote)

	out, err := run(t, app, "labels", "Children__c", "Child_s_Nationality__c", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"table":"Children__c","field":"Child_s_Nationality__c","labels":["French","German"]}`, out)

	out, err = run(t, app, "labels", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"field":"Child_s_Nationality__c","labels":["French","German"]}]`, out)

	_, err = run(t, app, "labels", "Children__c")
	assert.Error(t, err)
}

func TestPurgeCommand(t *testing.T) {
	remote := memory.New()
	app := testApp(t, remote, person("1001", "Ana"))
	_, err := run(t, app, "sync", "--no-report", "-o", "json")
	require.NoError(t, err)
	require.Len(t, remote.Rows("Children__c"), 1)

	_, err = run(t, app, "purge", "person")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	_, err = run(t, app, "purge", "everything", "--yes")
	assert.Error(t, err)

	out, err := run(t, app, "purge", "person", "--yes", "-o", "json")
	require.NoError(t, err)
	var outcomes []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, "completed", outcomes[0]["status"])
	assert.Empty(t, remote.Rows("Children__c"))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, testApp(t, memory.New()), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "casesync version 1.2.3")
	assert.Contains(t, out, "commit: abc123")
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, testApp(t, memory.New()), "version", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"interrupted sync", fmt.Errorf("%w: %v", errors.ErrCanceled, context.Canceled), 130},
		{"canceled context", errors.WrapIO("fetch", "snapshot", context.Canceled), 130},
		{"entity failures", errors.New("2 entities failed"), 1},
		{"timeout", errors.NewTimeoutError("sync", "2h0m0s", "deadline exceeded"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
