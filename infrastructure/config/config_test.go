package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "ARCHIVE_DRIVER", "CONFIG_FILE", "MAX_TEXT_LENGTH", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ArchiveNone, cfg.ArchiveDriver)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 1000, cfg.Limits.MaxTextLength)
	assert.Equal(t, 50, cfg.Limits.MaxBranchSize)
	assert.Equal(t, 5000, cfg.Limits.MaxNodesPerMindmap)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("ARCHIVE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/m.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("MAX_BRANCH_SIZE", "7")
	t.Setenv("XPERTAI_API_URL", "https://api.example.com/")
	t.Setenv("ENABLE_TRACING", "yes")
	t.Setenv("READ_TIMEOUT", "3s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, ArchiveSQLite, cfg.ArchiveDriver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 7, cfg.Limits.MaxBranchSize)
	assert.Equal(t, "https://api.example.com", cfg.XpertAPIURL)
	assert.True(t, cfg.EnableTracing)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  max_text_length: 42\n"), 0o600))
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("ARCHIVE_DRIVER", "")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_BRANCH_SIZE", "9")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Limits.MaxTextLength)
	assert.Equal(t, 9, cfg.Limits.MaxBranchSize)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		return &Config{Environment: "development", ArchiveDriver: ArchiveNone}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{name: "valid development config", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.ArchiveDriver = "redis" }, wantErr: true, errMsg: "ARCHIVE_DRIVER"},
		{name: "sqlite without path", mutate: func(c *Config) { c.ArchiveDriver = ArchiveSQLite }, wantErr: true, errMsg: "SQLITE_PATH"},
		{name: "dynamodb without table", mutate: func(c *Config) { c.ArchiveDriver = ArchiveDynamoDB }, wantErr: true, errMsg: "DYNAMODB_TABLE"},
		{name: "negative limits", mutate: func(c *Config) { c.Limits.MaxBranchSize = -1 }, wantErr: true, errMsg: "negative"},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true, errMsg: "SESSION_SECRET is required"},
		{name: "production with short secret", mutate: func(c *Config) {
			c.Environment = "production"
			c.SessionSecret = "short"
		}, wantErr: true, errMsg: "at least 32"},
		{name: "production with secret", mutate: func(c *Config) {
			c.Environment = "production"
			c.SessionSecret = "0123456789abcdef0123456789abcdef"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadLimitsFile(t *testing.T) {
	dir := t.TempDir()
	base := Limits{MaxTextLength: 1, MaxBranchSize: 2, MaxNodesPerMindmap: 3}

	t.Run("missing file", func(t *testing.T) {
		got, err := LoadLimitsFile(filepath.Join(dir, "nope.yaml"), base)
		assert.Error(t, err)
		assert.Equal(t, base, got)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("limits: [oops"), 0o600))
		_, err := LoadLimitsFile(path, base)
		assert.Error(t, err)
	})

	t.Run("negative value", func(t *testing.T) {
		path := filepath.Join(dir, "neg.yaml")
		require.NoError(t, os.WriteFile(path, []byte("limits:\n  max_branch_size: -4\n"), 0o600))
		_, err := LoadLimitsFile(path, base)
		assert.Error(t, err)
	})
}

func TestConfigWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  max_text_length: 10\n"), 0o600))

	initial := Limits{MaxTextLength: 10, MaxBranchSize: 5}
	w, err := NewConfigWatcher(path, initial, zap.NewNop())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	var mu sync.Mutex
	var got []Limits
	w.OnChange(func(l Limits) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, l)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to start reading events.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  max_text_length: 20\n"), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, Limits{MaxTextLength: 20, MaxBranchSize: 5}, w.Current())

	cancel()
	assert.NoError(t, <-done)
}
