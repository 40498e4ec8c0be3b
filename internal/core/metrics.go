package core

// AnchorTimings captures per-stage timing of one Anchor call.
// All timestamps are Unix nanoseconds. Zero means "not measured / not applicable".
type AnchorTimings struct {
	ReqStartUnixNS int64
	ReqEndUnixNS   int64

	HashStartUnixNS int64
	HashEndUnixNS   int64

	// Ledger write, or the wait for the Merkle batch carrying this file.
	LedgerStartUnixNS int64
	LedgerEndUnixNS   int64

	StorageStartUnixNS int64
	StorageEndUnixNS   int64

	DBStartUnixNS int64
	DBEndUnixNS   int64

	MerkleBatchSize int
	MerkleWaitSec   float64

	TotalSec   float64
	HashSec    float64
	LedgerSec  float64
	StorageSec float64
	DBSec      float64
}

func (t *AnchorTimings) derive() {
	t.TotalSec = nsToSec(t.ReqEndUnixNS - t.ReqStartUnixNS)
	t.HashSec = nsToSec(t.HashEndUnixNS - t.HashStartUnixNS)
	t.LedgerSec = nsToSec(t.LedgerEndUnixNS - t.LedgerStartUnixNS)
	t.StorageSec = nsToSec(t.StorageEndUnixNS - t.StorageStartUnixNS)
	t.DBSec = nsToSec(t.DBEndUnixNS - t.DBStartUnixNS)
}

func nsToSec(ns int64) float64 {
	if ns <= 0 {
		return 0
	}
	return float64(ns) / 1e9
}
