package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	require.Equal(t, "eleitoral", cfg.ServiceName)
	require.Equal(t, StoreMemory, cfg.Store)
	require.Equal(t, 2*time.Second, cfg.PollInterval)
	require.Equal(t, 0.5, cfg.Statute.QuorumFraction)
	require.True(t, cfg.EnableCaseConcludedConsumer)
}

func TestLoadFileLayersYAMLThenEnvironment(t *testing.T) {
	yamlContent := `
serviceName: "council-2026"
store: "sqlite"
sqlitePath: "/tmp/council.db"
pollInterval: 5s
statute:
  appealDays: 3
  calendarMode: "business"
  holidays: ["2026-11-02", "2026-11-15"]
enableAppealWindowSweeper: false
`
	path := filepath.Join(t.TempDir(), "eleitoral.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STATUTE_APPEAL_DAYS", "10")
	t.Setenv("ENABLE_OUTBOX_RELAY", "off")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "council-2026", cfg.ServiceName)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.Equal(t, "9090", cfg.HTTPPort)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Equal(t, 10, cfg.Statute.AppealDays)
	require.Equal(t, 5, cfg.Statute.DefenseDays)
	require.Equal(t, "business", cfg.Statute.CalendarMode)
	require.Equal(t, []string{"2026-11-02", "2026-11-15"}, cfg.Statute.Holidays)
	require.False(t, cfg.EnableAppealWindowSweeper)
	require.False(t, cfg.EnableOutboxRelay)
}

func TestLoadFileRejectsInvalidValues(t *testing.T) {
	t.Setenv("STORE", "postgres")
	_, err := LoadFile("")
	require.ErrorContains(t, err, "POSTGRES_DSN")

	t.Setenv("STORE", "memory")
	t.Setenv("STATUTE_QUORUM_FRACTION", "1.5")
	_, err = LoadFile("")
	require.ErrorContains(t, err, "quorum fraction")
}

func TestEnvBoolAcceptsLooseSpellings(t *testing.T) {
	t.Setenv("FLAG_ON", "Yes")
	t.Setenv("FLAG_BAD", "maybe")
	require.True(t, envBool("FLAG_ON", false))
	require.True(t, envBool("FLAG_BAD", true))
	require.False(t, envBool("FLAG_UNSET", false))
}
