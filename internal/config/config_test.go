package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, float64(8), cfg.Scheduling.HoursPerDay)
	assert.False(t, cfg.Scheduling.SkipWeekends)
	assert.False(t, cfg.Graph.Strict)
	assert.Equal(t, 24*time.Hour, cfg.Redis.SchemaTTL)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
scheduling:
  hours_per_day: 7.5
  skip_weekends: true
graph:
  strict: true
database:
  host: db.internal
  dbname: wrapflow
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("DB_HOST", "db.override")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 7.5, cfg.Scheduling.HoursPerDay)
	assert.True(t, cfg.Scheduling.SkipWeekends)
	assert.True(t, cfg.Graph.Strict)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Contains(t, cfg.Database.DSN(), "dbname=wrapflow")
}

func TestLoadRejectsBadCalendar(t *testing.T) {
	t.Setenv("WRAPFLOW_HOURS_PER_DAY", "30")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
