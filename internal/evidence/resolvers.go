package evidence

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"
)

// RandomResolver fabricates lookup results. The outcome is random: a query is
// found with probability FoundRatio, and every metadata field is made up.
// Use it for demos only.
type RandomResolver struct {
	FoundRatio   float64
	Organization string

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewRandomResolver(foundRatio float64, organization string, seed uint64) *RandomResolver {
	return &RandomResolver{
		FoundRatio:   foundRatio,
		Organization: organization,
		rnd:          rand.New(rand.NewPCG(seed, seed+1)),
		now:          time.Now,
	}
}

func (r *RandomResolver) Resolve(_ context.Context, query string) (VerificationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rnd.Float64() >= r.FoundRatio {
		return NotFound(query), nil
	}
	observed := r.now().Add(-time.Duration(r.rnd.Int64N(int64(24 * time.Hour))))
	return VerificationResult{
		QueryID:             query,
		Status:              LookupFound,
		ResolvedHash:        r.hex64(),
		LedgerRef:           r.hex64(),
		BlockRef:            strconv.Itoa(r.rnd.IntN(1000000)),
		IssuingOrganization: r.Organization,
		ObservedAt:          &observed,
	}, nil
}

func (r *RandomResolver) hex64() string {
	return fmt.Sprintf("0x%016x%016x%016x%016x", r.rnd.Uint64(), r.rnd.Uint64(), r.rnd.Uint64(), r.rnd.Uint64())
}

// RegistryResolver finds verified records of the session by fingerprint,
// ledger reference or storage reference.
type RegistryResolver struct {
	Registry     *Registry
	Organization string
}

func (r RegistryResolver) Resolve(_ context.Context, query string) (VerificationResult, error) {
	for _, rec := range r.Registry.List() {
		if rec.Status != StatusVerified {
			continue
		}
		if query != rec.Fingerprint && query != rec.LedgerRef && query != rec.StorageRef {
			continue
		}
		observed := rec.UpdatedAt
		return VerificationResult{
			QueryID:             query,
			Status:              LookupFound,
			ResolvedHash:        rec.Fingerprint,
			LedgerRef:           rec.LedgerRef,
			BlockRef:            "session:" + strconv.Itoa(rec.Seq),
			IssuingOrganization: r.Organization,
			ObservedAt:          &observed,
		}, nil
	}
	return NotFound(query), nil
}

// FirstFound asks each resolver in turn and returns the first found result.
func FirstFound(resolvers ...Resolver) Resolver {
	return ResolverFunc(func(ctx context.Context, query string) (VerificationResult, error) {
		for _, r := range resolvers {
			res, err := r.Resolve(ctx, query)
			if err != nil {
				return VerificationResult{}, err
			}
			if res.Status == LookupFound {
				return res, nil
			}
		}
		return NotFound(query), nil
	})
}
