package evidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomResolverRatio(t *testing.T) {
	always := NewRandomResolver(1, "SecureOrg Inc.", 9)
	res, err := always.Resolve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, LookupFound, res.Status)
	assert.Equal(t, "SecureOrg Inc.", res.IssuingOrganization)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, res.ResolvedHash)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, res.LedgerRef)
	assert.NotEmpty(t, res.BlockRef)
	require.NotNil(t, res.ObservedAt)

	never := NewRandomResolver(0, "SecureOrg Inc.", 9)
	for i := 0; i < 10; i++ {
		res, err := never.Resolve(context.Background(), "q")
		require.NoError(t, err)
		assert.Equal(t, NotFound("q"), res)
	}
}

func TestRandomResolverSeeded(t *testing.T) {
	a := NewRandomResolver(0.5, "org", 11)
	b := NewRandomResolver(0.5, "org", 11)
	for i := 0; i < 10; i++ {
		ra, _ := a.Resolve(context.Background(), "q")
		rb, _ := b.Resolve(context.Background(), "q")
		assert.Equal(t, ra.Status, rb.Status)
		assert.Equal(t, ra.LedgerRef, rb.LedgerRef)
	}
}

func TestRegistryResolver(t *testing.T) {
	reg := NewRegistry()
	verified, pending := newRecord("a", "a.txt"), newRecord("b", "b.txt")
	verified.Fingerprint = "0xfp-a"
	pending.Fingerprint = "0xfp-b"
	reg.Append(verified, pending)
	_, err := reg.Advance("a", StatusProcessing, Proof{}, "")
	require.NoError(t, err)
	_, err = reg.Advance("a", StatusVerified, Proof{LedgerRef: "0xtx-a", StorageRef: "Qma"}, "")
	require.NoError(t, err)

	r := RegistryResolver{Registry: reg, Organization: "SecureOrg Inc."}
	for _, q := range []string{"0xfp-a", "0xtx-a", "Qma"} {
		res, err := r.Resolve(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, LookupFound, res.Status, q)
		assert.Equal(t, "0xtx-a", res.LedgerRef)
		assert.Equal(t, "session:0", res.BlockRef)
		assert.Equal(t, "SecureOrg Inc.", res.IssuingOrganization)
	}

	res, err := r.Resolve(context.Background(), "0xfp-b")
	require.NoError(t, err)
	assert.Equal(t, LookupNotFound, res.Status)
}

func TestFirstFound(t *testing.T) {
	found := ResolverFunc(func(_ context.Context, q string) (VerificationResult, error) {
		return VerificationResult{QueryID: q, Status: LookupFound, LedgerRef: "0x2"}, nil
	})
	r := FirstFound(knownResolver(nil), found)

	res, err := r.Resolve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "0x2", res.LedgerRef)

	res, err = FirstFound(knownResolver(nil)).Resolve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, LookupNotFound, res.Status)
}
