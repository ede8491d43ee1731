package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"backoffice/internal/audit"
	"backoffice/internal/authz"
	"backoffice/internal/config"
	"backoffice/internal/repository"
	"backoffice/internal/shared"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "data", "backoffice.db")
	cfg.Seed.PasswordCost = bcrypt.MinCost
	require.NoError(t, cfg.ParseAndValidate())
	return cfg
}

func setupTestDB(t *testing.T, cfg *config.Config) (repository.Backend, func()) {
	t.Helper()
	backend, err := repository.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return backend, func() { backend.Close() }
}

func count(t *testing.T, q repository.Querier, table string) int64 {
	t.Helper()
	row, err := q.QueryOne(context.Background(), "SELECT COUNT(*) AS n FROM "+table)
	require.NoError(t, err)
	require.NotNil(t, row)
	return row.Int64("n")
}

var countedTables = []string{
	"permissions", "role_permissions", "roles", "users", "customers", "leads",
	"reservations", "sales_cases", "properties", "operations_trips", "activities",
}

func TestInitializeStorage_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	backend, cleanup := setupTestDB(t, cfg)
	defer cleanup()
	ctx := context.Background()

	res, err := InitializeStorage(ctx, cfg, Options{Backend: backend})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.RunID)
	assert.True(t, res.Schema.FreshInstall)
	assert.Empty(t, res.Migration.Failed)
	assert.Zero(t, res.Authz.Failures)
	require.NotNil(t, res.Seed)
	assert.Positive(t, res.Seed.Inserted())
	assert.Contains(t, res.Summary(), "local backend")

	assert.Equal(t, int64(len(authz.Modules)*len(authz.Actions)), count(t, backend, "permissions"))
	assert.Equal(t, int64(3), count(t, backend, "customers"))
	assert.Positive(t, count(t, backend, "users"))

	before := map[string]int64{}
	for _, table := range countedTables {
		before[table] = count(t, backend, table)
	}

	again, err := InitializeStorage(ctx, cfg, Options{Backend: backend})
	require.NoError(t, err)
	assert.False(t, again.Schema.FreshInstall)
	assert.NotEqual(t, res.RunID, again.RunID)
	assert.Zero(t, again.Seed.Inserted())
	assert.NotEmpty(t, again.Seed.SkipReason)

	for _, table := range countedTables {
		assert.Equal(t, before[table], count(t, backend, table), table)
	}
}

func TestInitializeStorage_ForceSeedAddsNothingNew(t *testing.T) {
	cfg := testConfig(t)
	backend, cleanup := setupTestDB(t, cfg)
	defer cleanup()
	ctx := context.Background()

	_, err := InitializeStorage(ctx, cfg, Options{Backend: backend})
	require.NoError(t, err)
	customers := count(t, backend, "customers")

	res, err := InitializeStorage(ctx, cfg, Options{Backend: backend, ForceSeed: true})
	require.NoError(t, err)
	require.NotNil(t, res.Seed)
	assert.Empty(t, res.Seed.SkipReason)
	assert.Zero(t, res.Seed.Inserted())
	assert.Equal(t, customers, count(t, backend, "customers"))
}

func TestInitializeStorage_SkipSeed(t *testing.T) {
	cfg := testConfig(t)
	backend, cleanup := setupTestDB(t, cfg)
	defer cleanup()

	res, err := InitializeStorage(context.Background(), cfg, Options{Backend: backend, SkipSeed: true})
	require.NoError(t, err)
	assert.Nil(t, res.Seed)
	assert.Contains(t, res.Summary(), "seed disabled")
	assert.Zero(t, count(t, backend, "customers"))

	cfg.Seed.Enabled = false
	res, err = InitializeStorage(context.Background(), cfg, Options{Backend: backend})
	require.NoError(t, err)
	assert.Nil(t, res.Seed)
}

func TestInitializeStorage_FatalStages(t *testing.T) {
	t.Run("Connection", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Runtime.Serverless = true
		defer repository.Shutdown()

		res, err := InitializeStorage(context.Background(), cfg, Options{})
		assert.Nil(t, res)

		var stageErr *StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, StageConnect, stageErr.Stage)
		assert.True(t, stageErr.Fatal())
		assert.Equal(t, ExitDatabase, stageErr.ExitCode())
		assert.ErrorIs(t, err, shared.ErrMissingCredentials)
	})

	t.Run("Initial Schema", func(t *testing.T) {
		cfg := testConfig(t)
		broken := filepath.Join(t.TempDir(), "schema.sql")
		require.NoError(t, os.WriteFile(broken, []byte("CREATE TABLE users (id INTEGER PRIMARY KEY,"), 0644))
		cfg.Database.SchemaPaths = []string{broken}

		backend, cleanup := setupTestDB(t, cfg)
		defer cleanup()

		res, err := InitializeStorage(context.Background(), cfg, Options{Backend: backend})
		assert.Nil(t, res)

		var stageErr *StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, StageSchema, stageErr.Stage)
		assert.True(t, stageErr.Fatal())
		assert.ErrorIs(t, err, shared.ErrInitialSchema)
	})
}

func TestInitializeStorage_ProcessWideConnection(t *testing.T) {
	cfg := testConfig(t)
	defer repository.Shutdown()

	res, err := InitializeStorage(context.Background(), cfg, Options{SkipSeed: true})
	require.NoError(t, err)
	assert.Equal(t, repository.KindLocal, res.Backend.Kind())

	_, err = os.Stat(cfg.Database.Path)
	assert.NoError(t, err, "database file created with its directory")

	same, err := repository.Connect(context.Background(), cfg)
	require.NoError(t, err)
	assert.Same(t, res.Backend, same)
}

func TestInitializeStorage_Concurrent(t *testing.T) {
	cfg := testConfig(t)
	backend, cleanup := setupTestDB(t, cfg)
	defer cleanup()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = InitializeStorage(context.Background(), cfg, Options{Backend: backend})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(3), count(t, backend, "customers"))
	assert.Equal(t, int64(len(authz.Modules)*len(authz.Actions)), count(t, backend, "permissions"))
}

func TestInitializeStorage_ConcurrentDatastores(t *testing.T) {
	cfgA, cfgB := testConfig(t), testConfig(t)
	require.NotEqual(t, runKey(cfgA), runKey(cfgB))

	backendA, cleanupA := setupTestDB(t, cfgA)
	defer cleanupA()
	backendB, cleanupB := setupTestDB(t, cfgB)
	defer cleanupB()

	targets := []struct {
		cfg     *config.Config
		backend repository.Backend
	}{{cfgA, backendA}, {cfgB, backendB}, {cfgA, backendA}, {cfgB, backendB}}

	var wg sync.WaitGroup
	results := make([]*Result, len(targets))
	errs := make([]error, len(targets))
	for i, target := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = InitializeStorage(context.Background(), target.cfg, Options{Backend: target.backend})
		}(i)
	}
	wg.Wait()

	for i, target := range targets {
		require.NoError(t, errs[i])
		assert.Same(t, target.backend, results[i].Backend)
	}
	assert.Equal(t, int64(3), count(t, backendA, "customers"))
	assert.Equal(t, int64(3), count(t, backendB, "customers"))
}

func TestInitializeStorage_MetricsTextfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "backoffice.prom")
	backend, cleanup := setupTestDB(t, cfg)
	defer cleanup()

	_, err := InitializeStorage(context.Background(), cfg, Options{Backend: backend})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	text := string(data)
	for _, stage := range Stages {
		assert.Contains(t, text, `backoffice_bootstrap_stage_total{outcome="ok",stage="`+string(stage)+`"} 1`)
	}
	assert.Contains(t, text, "backoffice_bootstrap_seed_rows_inserted_total")
	assert.Contains(t, text, "backoffice_bootstrap_last_success_timestamp_seconds")
}

func TestNewMetrics_ExportsEveryStage(t *testing.T) {
	families, err := NewMetrics().Registry().Gather()
	require.NoError(t, err)

	var outcomes []string
	for _, family := range families {
		if family.GetName() != "backoffice_bootstrap_stage_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			assert.Zero(t, metric.GetCounter().GetValue())
			for _, label := range metric.GetLabel() {
				if label.GetName() == "stage" {
					outcomes = append(outcomes, label.GetValue())
				}
			}
		}
	}

	var want []string
	for _, stage := range Stages {
		want = append(want, string(stage))
	}
	assert.ElementsMatch(t, want, outcomes)
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe(StageSeed, time.Now(), outcomeOK)
		m.seeded(3)
		m.succeeded()
	})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
}

func TestStageError(t *testing.T) {
	cause := errors.New("boom")
	for _, stage := range Stages {
		err := &StageError{Stage: stage, Err: cause}
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), string(stage))
		assert.Equal(t, stage == StageConnect || stage == StageSchema, err.Fatal(), stage)
	}
}

func TestInitializeStorage_AuditEvents(t *testing.T) {
	cfg := testConfig(t)
	backend, cleanup := setupTestDB(t, cfg)
	defer cleanup()

	logger, hook := test.NewNullLogger()
	opts := Options{Backend: backend, SkipSeed: true, Auditor: audit.NewLoggerAuditor(true, logger)}

	_, err := InitializeStorage(context.Background(), cfg, opts)
	require.NoError(t, err)

	actions := map[string]int{}
	for _, entry := range hook.AllEntries() {
		actions[entry.Data["audit_action"].(string)]++
	}
	assert.Equal(t, 1, actions["schema.initialized"])
	assert.Equal(t, 1, actions["authz.bootstrapped"])
	assert.Zero(t, actions["seed.applied"])

	// nothing changes on the second run
	hook.Reset()
	_, err = InitializeStorage(context.Background(), cfg, opts)
	require.NoError(t, err)
	assert.Empty(t, hook.AllEntries())
}
