package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var ErrBatcherStopped = errors.New("merkle batcher stopped")

type batchItem struct {
	leaf           []byte
	enqueuedUnixNS int64
	resp           chan batchResponse
}

type batchResponse struct {
	res BatchResult
	err error
}

// BatchResult is returned to every Add caller of a committed batch.
type BatchResult struct {
	Root      string
	Receipt   Receipt
	Index     int
	BatchSize int
	Proof     []ProofStep

	EnqueueUnixNS    int64
	FlushStartUnixNS int64
	LedgerEndUnixNS  int64
}

// MerkleBatcher collects file digests and anchors one Merkle root per batch.
// A batch is flushed when it reaches batchSize or maxWait after its first item.
type MerkleBatcher struct {
	ledger    Ledger
	batchSize int
	maxWait   time.Duration
	org       string

	in   chan *batchItem
	stop chan struct{}
	done chan struct{}
}

func NewMerkleBatcher(ledger Ledger, batchSize int, maxWait time.Duration, org string) *MerkleBatcher {
	if batchSize < 1 {
		batchSize = 1
	}
	if maxWait <= 0 {
		maxWait = 25 * time.Millisecond
	}
	b := &MerkleBatcher{
		ledger:    ledger,
		batchSize: batchSize,
		maxWait:   maxWait,
		org:       org,
		in:        make(chan *batchItem, batchSize*4),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.loop()
	return b
}

// Close flushes the pending batch and stops the loop.
func (b *MerkleBatcher) Close() {
	select {
	case <-b.stop:
	default:
		close(b.stop)
		<-b.done
	}
}

// Add enqueues a raw sha256 digest and blocks until its batch is committed.
func (b *MerkleBatcher) Add(ctx context.Context, leaf []byte) (BatchResult, error) {
	if len(leaf) != 32 {
		return BatchResult{}, errors.New("leaf hash must be 32 bytes (raw sha256)")
	}
	it := &batchItem{
		leaf:           leaf,
		enqueuedUnixNS: time.Now().UnixNano(),
		resp:           make(chan batchResponse, 1),
	}
	select {
	case <-b.stop:
		return BatchResult{}, ErrBatcherStopped
	default:
	}
	select {
	case b.in <- it:
	case <-b.stop:
		return BatchResult{}, ErrBatcherStopped
	case <-ctx.Done():
		return BatchResult{}, ctx.Err()
	}
	select {
	case r := <-it.resp:
		return r.res, r.err
	case <-ctx.Done():
		return BatchResult{}, ctx.Err()
	}
}

func (b *MerkleBatcher) flush(items []*batchItem) {
	if len(items) == 0 {
		return
	}
	flushStart := time.Now().UnixNano()
	fail := func(err error) {
		for _, it := range items {
			it.resp <- batchResponse{err: err}
		}
	}

	leaves := make([][]byte, len(items))
	for i, it := range items {
		leaves[i] = it.leaf
	}
	tree, err := buildMerkleTree(leaves)
	if err != nil {
		fail(err)
		return
	}

	rootHex := hex.EncodeToString(tree.root())
	meta := fmt.Sprintf(
		"type=merkle_batch; root=%s; leaves=%d; org=%s; leaf_algo=sha256(file_bytes); node_algo=sha256(l||r); created_at=%s",
		rootHex, len(leaves), b.org, time.Now().UTC().Format(time.RFC3339Nano),
	)
	receipt, err := b.ledger.Write(context.Background(), rootHex, meta)
	if err != nil {
		fail(err)
		return
	}
	ledgerEnd := time.Now().UnixNano()

	for i, it := range items {
		proof, _ := tree.proof(i)
		it.resp <- batchResponse{res: BatchResult{
			Root:             rootHex,
			Receipt:          receipt,
			Index:            i,
			BatchSize:        len(items),
			Proof:            proof,
			EnqueueUnixNS:    it.enqueuedUnixNS,
			FlushStartUnixNS: flushStart,
			LedgerEndUnixNS:  ledgerEnd,
		}}
	}
}

func (b *MerkleBatcher) loop() {
	defer close(b.done)

	var batch []*batchItem
	var timer *time.Timer
	var timerC <-chan time.Time

	reset := func() {
		if timer != nil {
			timer.Stop()
		}
		batch, timer, timerC = nil, nil, nil
	}

	for {
		select {
		case it := <-b.in:
			batch = append(batch, it)
			if len(batch) == 1 {
				timer = time.NewTimer(b.maxWait)
				timerC = timer.C
			}
			if len(batch) >= b.batchSize {
				b.flush(batch)
				reset()
			}

		case <-timerC:
			b.flush(batch)
			reset()

		case <-b.stop:
			for drained := false; !drained; {
				select {
				case it := <-b.in:
					batch = append(batch, it)
				default:
					drained = true
				}
			}
			b.flush(batch)
			reset()
			return
		}
	}
}
