package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLedger struct {
	mu     sync.Mutex
	keys   []string
	err    error
	height uint64
}

func (l *recordingLedger) Write(_ context.Context, key string, _ string) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return Receipt{}, l.err
	}
	l.keys = append(l.keys, key)
	l.height++
	return Receipt{TxID: "0xtx-" + key[:8], BlockNumber: l.height}, nil
}

func (l *recordingLedger) writes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}

func addAll(t *testing.T, b *MerkleBatcher, leaves [][]byte) ([]BatchResult, []error) {
	t.Helper()
	results := make([]BatchResult, len(leaves))
	errs := make([]error, len(leaves))
	var wg sync.WaitGroup
	for i, leaf := range leaves {
		wg.Add(1)
		go func(i int, leaf []byte) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			results[i], errs[i] = b.Add(ctx, leaf)
		}(i, leaf)
	}
	wg.Wait()
	return results, errs
}

func TestBatcherFlushesOnSize(t *testing.T) {
	l := &recordingLedger{}
	b := NewMerkleBatcher(l, 3, time.Hour, "SecureOrg Inc.")
	defer b.Close()

	in := leaves(3)
	results, errs := addAll(t, b, in)
	for _, err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, l.writes(), 1)
	root := results[0].Root
	assert.Equal(t, root, l.writes()[0])

	seen := map[int]bool{}
	for _, res := range results {
		assert.Equal(t, root, res.Root)
		assert.Equal(t, 3, res.BatchSize)
		assert.Equal(t, uint64(1), res.Receipt.BlockNumber)
		seen[res.Index] = true
	}
	assert.Len(t, seen, 3)

	// Each caller's proof leads from its own leaf to the shared root.
	for i, res := range results {
		encoded, err := encodeProof(res.Proof)
		require.NoError(t, err)
		ok, err := VerifyMerkleProof(hex.EncodeToString(in[i]), encoded, root)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestBatcherFlushesOnMaxWait(t *testing.T) {
	l := &recordingLedger{}
	b := NewMerkleBatcher(l, 10, 10*time.Millisecond, "org")
	defer b.Close()

	sum := sha256.Sum256([]byte("alone"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := b.Add(ctx, sum[:])
	require.NoError(t, err)
	assert.Equal(t, 1, res.BatchSize)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.Root)
	assert.Empty(t, res.Proof)
	assert.GreaterOrEqual(t, res.FlushStartUnixNS, res.EnqueueUnixNS)
}

func TestBatcherLedgerError(t *testing.T) {
	boom := errors.New("endorsement failed")
	b := NewMerkleBatcher(&recordingLedger{err: boom}, 2, time.Hour, "org")
	defer b.Close()

	_, errs := addAll(t, b, leaves(2))
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
}

func TestBatcherRejectsBadLeaf(t *testing.T) {
	b := NewMerkleBatcher(&recordingLedger{}, 1, 0, "org")
	defer b.Close()

	_, err := b.Add(context.Background(), []byte("short"))
	assert.Error(t, err)
}

func TestBatcherClose(t *testing.T) {
	b := NewMerkleBatcher(&recordingLedger{}, 1, 0, "org")
	b.Close()
	b.Close()

	sum := sha256.Sum256([]byte("late"))
	_, err := b.Add(context.Background(), sum[:])
	assert.ErrorIs(t, err, ErrBatcherStopped)
}
