package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"HOST", "PORT", "ENV", "CORS_ORIGINS", "TODO_STORAGE", "TODO_DATA_DIR",
		"TODO_WATCH", "JWT_SECRET", "TOKEN_TTL", "LLM_API_KEY", "GROQ_API_KEY", "LLM_BASE_URL",
		"LLM_MODEL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7860, cfg.Server.Port)
	assert.Equal(t, DriverJSON, cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, DefaultLLMModel, cfg.LLM.Model)
	assert.True(t, cfg.InsecureSecret())
	assert.Equal(t, filepath.Join("data", "tasks.json"), cfg.TasksFile())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: 9000
  env: production
storage:
  driver: sqlite
  data_dir: /var/lib/todo
auth:
  jwt_secret: from-file
  token_ttl: 2h
llm:
  model: file-model
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/todo/todoapp.db", cfg.SQLitePath())
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "file-model", cfg.LLM.Model)
	assert.Equal(t, "groq-key", cfg.LLM.APIKey)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("TODO_STORAGE", "postgres")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
