package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "be-pd-compliance", cfg.Service.Name)
	assert.Equal(t, 8086, cfg.Server.Port)
	assert.Equal(t, "compliance", cfg.Database.Database)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, time.Second, cfg.Autosave.QuietPeriod)
	assert.Equal(t, 5*time.Second, cfg.Autosave.PersistTimeout)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COMPLIANCE_SERVER_PORT", "9090")
	t.Setenv("COMPLIANCE_DATABASE_HOST", "db.internal")
	t.Setenv("COMPLIANCE_AUTOSAVE_QUIET_PERIOD", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 2*time.Second, cfg.Autosave.QuietPeriod)
}
