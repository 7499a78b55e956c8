package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint16(DefaultPort), cfg.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, uint8(DefaultCreditGrant), cfg.CreditGrant)
	assert.Zero(t, cfg.SyncTimeout)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, []string{"-port", "9998", "-log-level", "debug", "-sync-timeout-ms", "500"})
	assert.NoError(t, err)
	assert.Equal(t, uint16(9998), cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 500*time.Millisecond, cfg.SyncTimeout)
}

func TestLoadIniSuppliesDefaultsFlagsStillWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.ini")
	contents := "[bridge]\nport = 9000\nlog_level = warn\ncredit_grant = 5\nsync_timeout_ms = 2000\n"
	assert.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, []string{"-config", path})
	assert.NoError(t, err)
	assert.Equal(t, uint16(9000), cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, uint8(5), cfg.CreditGrant)
	assert.Equal(t, 2*time.Second, cfg.SyncTimeout)

	fs2 := flag.NewFlagSet("test2", flag.ContinueOnError)
	cfg2, err := Load(fs2, []string{"-config", path, "-port", "1234"})
	assert.NoError(t, err)
	assert.Equal(t, uint16(1234), cfg2.Port)
	assert.Equal(t, "warn", cfg2.LogLevel)
}
