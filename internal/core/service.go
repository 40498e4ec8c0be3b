package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"evidence-registry/internal/evidence"
)

var ErrNotFound = errors.New("anchored evidence not found")

// Anchored is one file whose digest has been written to the ledger and whose
// bytes are held by object storage.
type Anchored struct {
	ID           string `gorm:"primaryKey"`
	Filename     string
	Size         int64
	ContentType  string
	FileHash     string `gorm:"index"`
	ContentID    string `gorm:"index"`
	Fingerprint  string `gorm:"index"`
	StoragePath  string
	TxID         string `gorm:"index"`
	BlockNumber  uint64
	MerkleRoot   string
	MerkleIndex  int
	MerkleProof  string
	Organization string
	CreatedAt    time.Time

	Timings AnchorTimings `gorm:"-" json:"-"`
}

func (Anchored) TableName() string { return "anchored_evidence" }

// Receipt identifies a committed ledger write.
type Receipt struct {
	TxID        string
	BlockNumber uint64
}

type ObjectStorage interface {
	Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) (path string, err error)
}

type Ledger interface {
	Write(ctx context.Context, key string, metadata string) (Receipt, error)
}

// LedgerReader is implemented by ledgers that can confirm a key was written.
type LedgerReader interface {
	Read(ctx context.Context, key string) (string, error)
}

type Database interface {
	Save(ctx context.Context, doc *Anchored) error
	// Find matches ref against digest, content id, fingerprint or tx id.
	Find(ctx context.Context, ref string) (*Anchored, error)
	List(ctx context.Context) ([]Anchored, error)
}

type AnchorService struct {
	storage     ObjectStorage
	ledger      Ledger
	db          Database
	batcher     *MerkleBatcher
	org         string
	fingerprint evidence.FingerprintFunc
	now         func() time.Time
	logger      *zap.Logger
}

type Option func(*AnchorService)

// WithBatcher routes ledger writes through a Merkle batcher.
func WithBatcher(b *MerkleBatcher) Option {
	return func(s *AnchorService) { s.batcher = b }
}

func WithOrganization(org string) Option {
	return func(s *AnchorService) { s.org = org }
}

func WithFingerprint(f evidence.FingerprintFunc) Option {
	return func(s *AnchorService) { s.fingerprint = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *AnchorService) { s.now = now }
}

func NewAnchorService(s ObjectStorage, l Ledger, d Database, logger *zap.Logger, opts ...Option) *AnchorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnchorService{
		storage:     s,
		ledger:      l,
		db:          d,
		fingerprint: evidence.CharCodeFingerprint,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Anchor digests data, writes the digest to the ledger, uploads the bytes
// under their content id and persists the result.
func (s *AnchorService) Anchor(ctx context.Context, filename string, data io.ReadSeeker, size int64) (*Anchored, error) {
	var t AnchorTimings
	t.ReqStartUnixNS = time.Now().UnixNano()

	t.HashStartUnixNS = time.Now().UnixNano()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, data); err != nil {
		return nil, fmt.Errorf("hashing error: %w", err)
	}
	digest := hasher.Sum(nil)
	fileHash := hex.EncodeToString(digest)
	cid := ContentID(digest)
	t.HashEndUnixNS = time.Now().UnixNano()

	if _, err := data.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind error: %w", err)
	}
	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectReader(data); err == nil {
		contentType = mt.String()
	}
	if _, err := data.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind error: %w", err)
	}

	doc := &Anchored{
		ID:           uuid.NewString(),
		Filename:     filename,
		Size:         size,
		ContentType:  contentType,
		FileHash:     fileHash,
		ContentID:    cid,
		Fingerprint:  s.fingerprint(filename, size),
		Organization: s.org,
	}

	t.LedgerStartUnixNS = time.Now().UnixNano()
	if s.batcher != nil {
		res, err := s.batcher.Add(ctx, digest)
		if err != nil {
			return nil, fmt.Errorf("blockchain write error: %w", err)
		}
		proof, err := encodeProof(res.Proof)
		if err != nil {
			return nil, err
		}
		doc.TxID = res.Receipt.TxID
		doc.BlockNumber = res.Receipt.BlockNumber
		doc.MerkleRoot = res.Root
		doc.MerkleIndex = res.Index
		doc.MerkleProof = proof
		t.MerkleBatchSize = res.BatchSize
		t.MerkleWaitSec = nsToSec(res.FlushStartUnixNS - res.EnqueueUnixNS)
	} else {
		receipt, err := s.ledger.Write(ctx, fileHash, fmt.Sprintf("file=%s; cid=%s; org=%s", filename, cid, s.org))
		if err != nil {
			return nil, fmt.Errorf("blockchain write error: %w", err)
		}
		doc.TxID = receipt.TxID
		doc.BlockNumber = receipt.BlockNumber
	}
	t.LedgerEndUnixNS = time.Now().UnixNano()

	t.StorageStartUnixNS = time.Now().UnixNano()
	path, err := s.storage.Upload(ctx, cid, data, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("storage upload error: %w", err)
	}
	doc.StoragePath = path
	t.StorageEndUnixNS = time.Now().UnixNano()

	doc.CreatedAt = s.now()
	t.DBStartUnixNS = time.Now().UnixNano()
	if err := s.db.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("db save error: %w", err)
	}
	t.DBEndUnixNS = time.Now().UnixNano()
	t.ReqEndUnixNS = time.Now().UnixNano()
	t.derive()
	doc.Timings = t

	s.logger.Info("evidence anchored",
		zap.String("id", doc.ID),
		zap.String("file", filename),
		zap.String("cid", cid),
		zap.String("tx_id", doc.TxID),
	)
	s.logger.Debug("anchor timings",
		zap.Float64("total_sec", t.TotalSec),
		zap.Float64("hash_sec", t.HashSec),
		zap.Float64("ledger_sec", t.LedgerSec),
		zap.Float64("storage_sec", t.StorageSec),
		zap.Float64("db_sec", t.DBSec),
	)
	return doc, nil
}

// Find looks up anchored evidence by digest (with or without 0x), content id,
// fingerprint or transaction id.
func (s *AnchorService) Find(ctx context.Context, ref string) (*Anchored, error) {
	doc, err := s.db.Find(ctx, ref)
	if errors.Is(err, ErrNotFound) && len(ref) > 2 && ref[:2] == "0x" {
		doc, err = s.db.Find(ctx, ref[2:])
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *AnchorService) List(ctx context.Context) ([]Anchored, error) {
	return s.db.List(ctx)
}
