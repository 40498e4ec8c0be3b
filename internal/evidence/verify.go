package evidence

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type LookupStatus string

const (
	LookupFound    LookupStatus = "found"
	LookupNotFound LookupStatus = "not-found"
)

// VerificationResult answers one lookup. The metadata fields are only
// populated when Status is found.
type VerificationResult struct {
	QueryID             string       `json:"queryId"`
	Status              LookupStatus `json:"status"`
	ResolvedHash        string       `json:"resolvedHash,omitempty"`
	LedgerRef           string       `json:"ledgerReference,omitempty"`
	BlockRef            string       `json:"blockReference,omitempty"`
	IssuingOrganization string       `json:"issuingOrganization,omitempty"`
	ObservedAt          *time.Time   `json:"observedAt,omitempty"`
}

// NotFound is the result for a query nothing matches.
func NotFound(query string) VerificationResult {
	return VerificationResult{QueryID: query, Status: LookupNotFound}
}

func (r VerificationResult) normalize(query string) VerificationResult {
	r.QueryID = query
	if r.Status != LookupFound {
		return NotFound(query)
	}
	return r
}

// Resolver decides whether evidence matching query is known.
type Resolver interface {
	Resolve(ctx context.Context, query string) (VerificationResult, error)
}

type ResolverFunc func(ctx context.Context, query string) (VerificationResult, error)

func (f ResolverFunc) Resolve(ctx context.Context, query string) (VerificationResult, error) {
	return f(ctx, query)
}

// Verifier runs lookups. Exactly one result is live; a new lookup cancels the
// one in flight and replaces its result.
type Verifier struct {
	resolver Resolver
	delay    time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	searching bool
	result    *VerificationResult
}

func NewVerifier(resolver Resolver, delay time.Duration, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{resolver: resolver, delay: delay, logger: logger}
}

// Lookup trims query and resolves it after the configured delay. Any
// non-empty query is accepted.
func (v *Verifier) Lookup(ctx context.Context, query string) (VerificationResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return VerificationResult{}, ErrEmptyQuery
	}

	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.gen++
	gen := v.gen
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.searching = true
	v.mu.Unlock()
	defer cancel()

	res, err := v.resolve(ctx, query)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return VerificationResult{}, ErrSuperseded
	}
	v.searching = false
	v.cancel = nil
	if err != nil {
		v.logger.Warn("verification lookup failed", zap.String("query", query), zap.Error(err))
		return VerificationResult{}, err
	}
	v.result = &res
	v.logger.Info("verification lookup",
		zap.String("query", query),
		zap.String("status", string(res.Status)),
	)
	return res, nil
}

func (v *Verifier) resolve(ctx context.Context, query string) (VerificationResult, error) {
	if err := sleep(ctx, v.delay); err != nil {
		return VerificationResult{}, err
	}
	res, err := v.resolver.Resolve(ctx, query)
	if err != nil {
		return VerificationResult{}, err
	}
	return res.normalize(query), nil
}

// State reports whether a lookup is in flight and the live result, if any.
func (v *Verifier) State() (bool, *VerificationResult) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.result == nil {
		return v.searching, nil
	}
	res := *v.result
	return v.searching, &res
}
