package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id, name string) *Record {
	return &Record{
		ID:        id,
		FileName:  name,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		source:    SourceFile{Name: name, Size: 3, Content: []byte("abc")},
	}
}

func TestRegistryAppendAssignsOrder(t *testing.T) {
	r := NewRegistry()
	r.Append(newRecord("a", "one.txt"), newRecord("b", "two.txt"))
	r.Append(newRecord("c", "three.txt"))

	list := r.List()
	require.Len(t, list, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, list[i].ID)
		assert.Equal(t, i, list[i].Seq)
		assert.Equal(t, list[i].CreatedAt, list[i].UpdatedAt)
	}
	assert.Equal(t, 3, r.Len())

	src, err := r.Source("b")
	require.NoError(t, err)
	assert.Equal(t, "two.txt", src.Name)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Source("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryAdvance(t *testing.T) {
	r := NewRegistry()
	r.Append(newRecord("a", "one.txt"), newRecord("b", "two.txt"))

	_, err := r.Advance("a", StatusVerified, Proof{LedgerRef: "0x1"}, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "allowed: [processing]")

	rec, err := r.Advance("a", StatusProcessing, Proof{LedgerRef: "0x1", StorageRef: "Qm1"}, "ignored")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, rec.Status)
	assert.Empty(t, rec.LedgerRef)
	assert.Empty(t, rec.StorageRef)
	assert.Empty(t, rec.Failure)

	rec, err = r.Advance("a", StatusVerified, Proof{LedgerRef: "0x1", StorageRef: "Qm1"}, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "0x1", rec.LedgerRef)
	assert.Equal(t, "Qm1", rec.StorageRef)
	assert.Empty(t, rec.Failure)

	_, err = r.Advance("a", StatusError, Proof{}, KindInternal)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = r.Advance("b", StatusProcessing, Proof{}, "")
	require.NoError(t, err)
	rec, err = r.Advance("b", StatusError, Proof{LedgerRef: "0x2"}, KindTransport)
	require.NoError(t, err)
	assert.Equal(t, KindTransport, rec.Failure)
	assert.Empty(t, rec.LedgerRef)

	_, err = r.Advance("missing", StatusProcessing, Proof{}, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Append(newRecord("a", "one.txt"))

	rec, err := r.Get("a")
	require.NoError(t, err)
	rec.Status = StatusVerified

	again, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
}

func TestRegistrySubscribe(t *testing.T) {
	r := NewRegistry()
	events, unsubscribe := r.Subscribe(8)

	r.Append(newRecord("a", "one.txt"))
	_, err := r.Advance("a", StatusProcessing, Proof{}, "")
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, "a", first.RecordID)
	assert.Equal(t, Status(""), first.From)
	assert.Equal(t, StatusPending, first.To)

	second := <-events
	assert.Equal(t, StatusPending, second.From)
	assert.Equal(t, StatusProcessing, second.To)

	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open)

	// Publishing after unsubscribe must not panic on the closed channel.
	_, err = r.Advance("a", StatusVerified, Proof{LedgerRef: "0x1", StorageRef: "Qm1"}, "")
	require.NoError(t, err)
}

func TestRegistrySubscribeDropsWhenFull(t *testing.T) {
	r := NewRegistry()
	events, unsubscribe := r.Subscribe(1)
	defer unsubscribe()

	r.Append(newRecord("a", "one.txt"), newRecord("b", "two.txt"))

	ev := <-events
	assert.Equal(t, "a", ev.RecordID)
	select {
	case ev := <-events:
		t.Fatalf("unexpected buffered event %+v", ev)
	default:
	}
}

func TestRegistryStats(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, Stats{}, r.Stats())

	r.Append(newRecord("a", "a"), newRecord("b", "b"), newRecord("c", "c"), newRecord("d", "d"))
	for _, id := range []string{"a", "b", "c"} {
		_, err := r.Advance(id, StatusProcessing, Proof{}, "")
		require.NoError(t, err)
	}
	_, err := r.Advance("a", StatusVerified, Proof{LedgerRef: "0xaa", StorageRef: "Qma"}, "")
	require.NoError(t, err)
	_, err = r.Advance("b", StatusError, Proof{}, KindParse)
	require.NoError(t, err)

	st := r.Stats()
	assert.Equal(t, 4, st.Records)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.Processing)
	assert.Equal(t, 1, st.Verified)
	assert.Equal(t, 1, st.Errored)
	assert.Equal(t, 1, st.LedgerTxns)
	assert.InDelta(t, 50.0, st.SuccessRate, 0.001)
}
