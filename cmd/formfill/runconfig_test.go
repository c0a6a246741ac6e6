package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formfill/pkg/config"
	"github.com/entrhq/formfill/pkg/logging"
)

func writeRunFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadRunConfig(t *testing.T) {
	path := writeRunFile(t, `
url: https://jobs.example.com/apply
output: filled.html
headless: false
autofill:
  batch_size: 6
  concurrency: 3
  request_timeout: 10s
  hover_debounce: 50ms
sites:
  allowed: ["*.example.com"]
logging:
  verbosity: debug
`)

	rc, err := loadRunConfig(path)
	require.NoError(t, err)
	require.NoError(t, rc.Validate())

	assert.Equal(t, "https://jobs.example.com/apply", rc.URL)
	assert.False(t, rc.Headless)
	assert.Equal(t, 10*time.Second, rc.Autofill.RequestTimeout)
	assert.Equal(t, logging.LevelDebug, rc.LogLevel())

	tuning := rc.ApplyTuning(config.DefaultTuning())
	assert.Equal(t, 6, tuning.BatchSize)
	assert.Equal(t, 3, tuning.Concurrency)
	assert.Equal(t, config.DefaultTuning().MaxAttempts, tuning.MaxAttempts)
	assert.Equal(t, 10*time.Second, tuning.RequestTimeout)
	assert.Equal(t, 50*time.Millisecond, tuning.HoverDebounce)

	policy, err := rc.SitePolicy(nil)
	require.NoError(t, err)
	assert.True(t, policy.Allowed("https://jobs.example.com/apply"))
	assert.False(t, policy.Allowed("https://evil.test/"))
}

func TestLoadRunConfig_Defaults(t *testing.T) {
	rc, err := loadRunConfig(writeRunFile(t, "file: form.html\n"))
	require.NoError(t, err)
	require.NoError(t, rc.Validate())
	assert.True(t, rc.Headless)
	assert.Equal(t, "normal", rc.Logging.Verbosity)
	assert.Equal(t, config.DefaultTuning(), rc.ApplyTuning(config.DefaultTuning()))

	policy, err := rc.SitePolicy(nil)
	require.NoError(t, err)
	assert.Nil(t, policy)
}

func TestLoadRunConfig_Errors(t *testing.T) {
	_, err := loadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadRunConfig(writeRunFile(t, "url: [unterminated"))
	assert.Error(t, err)
}

func TestRunConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		rc   RunConfig
	}{
		{name: "no target", rc: RunConfig{}},
		{name: "both targets", rc: RunConfig{URL: "https://a.test", File: "a.html"}},
		{name: "negative batch", rc: RunConfig{File: "a.html", Autofill: AutofillConfig{BatchSize: -1}}},
		{name: "negative concurrency", rc: RunConfig{File: "a.html", Autofill: AutofillConfig{Concurrency: -1}}},
		{name: "negative attempts", rc: RunConfig{File: "a.html", Autofill: AutofillConfig{MaxAttempts: -1}}},
		{name: "negative timeout", rc: RunConfig{File: "a.html", Autofill: AutofillConfig{RequestTimeout: -time.Second}}},
		{name: "negative debounce", rc: RunConfig{File: "a.html", Autofill: AutofillConfig{HoverDebounce: -time.Millisecond}}},
		{name: "bad verbosity", rc: RunConfig{File: "a.html", Logging: LoggingConfig{Verbosity: "loud"}}},
		{name: "bad pattern", rc: RunConfig{File: "a.html", Sites: SitesConfig{Blocked: []string{"[unclosed"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := tt.rc
			assert.Error(t, rc.Validate())
		})
	}
}
