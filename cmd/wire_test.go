package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidence-registry/internal/config"
	"evidence-registry/internal/evidence"
)

func TestLoadAppLocalMode(t *testing.T) {
	t.Setenv("LIFECYCLE_MODE", "local")
	t.Setenv("LOG_LEVEL", "error")

	a, err := loadApp(context.Background(), filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	progress := a.pipeline.Ingest(ctx, []evidence.SourceFile{{Name: "memo.txt", Size: 4, Content: []byte("memo")}})
	rec, err := progress[0].Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, evidence.StatusVerified, rec.Status)

	docs, err := a.anchor.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, docs[0].ContentID, rec.StorageRef)
	assert.Equal(t, docs[0].TxID, rec.LedgerRef)
}

func TestLoadAppRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "tape")
	_, err := loadApp(context.Background(), "")
	assert.Error(t, err)
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := newLogger(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
