package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Valid())
	assert.Equal(t, 1, cfg.MaxFixBits)
}

func TestValidRejectsOutOfRangeFixBits(t *testing.T) {
	cfg := Default()
	cfg.MaxFixBits = 9
	assert.Error(t, cfg.Valid())
}

func TestValidRejectsBadSendBufExp(t *testing.T) {
	cfg := Default()
	cfg.NetServices = []NetService{{Protocol: "beast_out", Port: 30005, SendBufExp: 99}}
	assert.Error(t, cfg.Valid())
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_index: 2\nlog_level: debug\n"), 0644))

	cfg := Default()
	require.NoError(t, LoadFile(&cfg, path))
	assert.Equal(t, 2, cfg.DeviceIndex)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg := Default()
	require.NoError(t, LoadFile(&cfg, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestApplyOnlyOverridesChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--max-fix-bits=2"}))

	cfg := Default()
	cfg.Gain = 42
	Apply(&cfg, fs, f)

	assert.Equal(t, 2, cfg.MaxFixBits)
	assert.Equal(t, float64(42), cfg.Gain) // untouched: --gain was not passed
}

func TestApplyRequiresBothLatAndLon(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--lat=52.3"}))

	cfg := Default()
	Apply(&cfg, fs, f)
	assert.False(t, cfg.ReceiverConfigured)
}
