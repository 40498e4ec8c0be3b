package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"evidence-registry/internal/evidence"
)

// Confirm anchors a session file in-process, so the service can drive the
// lifecycle without going over HTTP.
func (s *AnchorService) Confirm(ctx context.Context, file evidence.SourceFile) (evidence.Proof, error) {
	doc, err := s.Anchor(ctx, file.Name, file.Reader(), file.Size)
	if err != nil {
		return evidence.Proof{}, err
	}
	return evidence.Proof{LedgerRef: doc.TxID, StorageRef: doc.ContentID}, nil
}

// Resolve answers a verification query from anchored evidence. A match whose
// Merkle proof does not lead to its root, or whose key the ledger does not
// know, is reported as not found.
func (s *AnchorService) Resolve(ctx context.Context, query string) (evidence.VerificationResult, error) {
	doc, err := s.Find(ctx, query)
	if errors.Is(err, ErrNotFound) {
		return evidence.NotFound(query), nil
	}
	if err != nil {
		return evidence.VerificationResult{}, fmt.Errorf("resolve %q: %w", query, err)
	}

	ledgerKey := doc.FileHash
	if doc.MerkleProof != "" {
		ok, err := VerifyMerkleProof(doc.FileHash, doc.MerkleProof, doc.MerkleRoot)
		if err != nil || !ok {
			s.logger.Warn("merkle inclusion check failed", zap.String("id", doc.ID), zap.Error(err))
			return evidence.NotFound(query), nil
		}
		ledgerKey = doc.MerkleRoot
	}
	if r, ok := s.ledger.(LedgerReader); ok {
		if _, err := r.Read(ctx, ledgerKey); err != nil {
			s.logger.Warn("ledger read failed", zap.String("key", ledgerKey), zap.Error(err))
			return evidence.NotFound(query), nil
		}
	}

	observed := doc.CreatedAt
	return evidence.VerificationResult{
		QueryID:             query,
		Status:              evidence.LookupFound,
		ResolvedHash:        "0x" + doc.FileHash,
		LedgerRef:           doc.TxID,
		BlockRef:            strconv.FormatUint(doc.BlockNumber, 10),
		IssuingOrganization: doc.Organization,
		ObservedAt:          &observed,
	}, nil
}
