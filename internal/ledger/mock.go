package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"evidence-registry/internal/core"
)

var ErrAssetNotFound = errors.New("ledger: asset not found")

// MockLedger keeps assets in memory and fabricates transaction ids. Every
// write lands in a new block.
type MockLedger struct {
	delay time.Duration

	mu     sync.RWMutex
	assets map[string]string
	height uint64
}

func NewMockLedger(delay time.Duration) *MockLedger {
	return &MockLedger{delay: delay, assets: make(map[string]string)}
}

func (m *MockLedger) Write(ctx context.Context, key string, metadata string) (core.Receipt, error) {
	if m.delay > 0 {
		t := time.NewTimer(m.delay) // simulated commit latency
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return core.Receipt{}, ctx.Err()
		}
	}
	dummyTx := sha256.Sum256([]byte(key + time.Now().String()))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[key] = metadata
	m.height++
	return core.Receipt{TxID: "0x" + hex.EncodeToString(dummyTx[:]), BlockNumber: m.height}, nil
}

func (m *MockLedger) Read(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.assets[key]
	if !ok {
		return "", ErrAssetNotFound
	}
	return meta, nil
}
