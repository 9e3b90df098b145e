package ragengine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_HasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "svenskrag", cfg.DBName)
	assert.Equal(t, "ollama", cfg.Chat.Provider)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.EmbeddingDim)
	assert.Greater(t, cfg.RetrieveK, 0)
	assert.Greater(t, cfg.ExpandCount, 0)
}

func TestResolveDBPath_ExplicitPathWins(t *testing.T) {
	cfg := Config{DBPath: "/tmp/explicit.db", DBName: "ignored"}
	assert.Equal(t, "/tmp/explicit.db", cfg.resolveDBPath())
}

func TestResolveDBPath_LocalUsesCWD(t *testing.T) {
	cfg := Config{DBName: "mydb", StorageDir: "local"}
	assert.Equal(t, "mydb.db", cfg.resolveDBPath())
}

func TestResolveDBPath_HomeUsesDotDir(t *testing.T) {
	cfg := Config{DBName: "mydb", StorageDir: "home"}
	path := cfg.resolveDBPath()
	assert.Equal(t, filepath.Base(path), "mydb.db")
	assert.Contains(t, path, ".svenskrag")
}

func TestResolveDBPath_DefaultsToSvenskragName(t *testing.T) {
	cfg := Config{StorageDir: "local"}
	assert.Equal(t, "svenskrag.db", cfg.resolveDBPath())
}
