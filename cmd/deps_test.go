package cmd

import (
	"path/filepath"
	"testing"

	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStoreMemoryMode(t *testing.T) {
	store, err := openStore(&config.Config{StorageMode: "memory"}, zap.NewNop())
	require.NoError(t, err)

	_, ok := store.(*ledger.MemoryStore)
	assert.True(t, ok, "memory mode should return the in-memory ledger")
	assert.NoError(t, store.Close())
}

func TestOpenAuditWithoutPath(t *testing.T) {
	sink, err := openAudit(&config.Config{}, zap.NewNop())
	require.NoError(t, err)

	_, ok := sink.(auditlog.NopSink)
	assert.True(t, ok, "empty trade log path should disable the audit log")
}

func TestOpenAuditWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")

	sink, err := openAudit(&config.Config{TradeLogPath: path}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.FileExists(t, path)
}
