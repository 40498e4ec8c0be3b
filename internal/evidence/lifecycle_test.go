package evidence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestPipeline(t *testing.T, c Confirmer, opts ...SimulatorOption) *Pipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := NewRegistry()
	sim := NewSimulator(reg, c, logger, opts...)
	t.Cleanup(sim.Close)
	return NewPipeline(reg, sim, logger)
}

func waitAll(t *testing.T, progress []*Progress) []Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := make([]Record, 0, len(progress))
	for _, p := range progress {
		rec, err := p.Wait(ctx)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func collect(p *Progress) []ProgressEvent {
	var out []ProgressEvent
	for ev := range p.Events() {
		out = append(out, ev)
	}
	return out
}

func TestIngestEmptyBatch(t *testing.T) {
	p := newTestPipeline(t, DelayConfirmer{})

	assert.Nil(t, p.Ingest(context.Background(), nil))
	assert.Nil(t, p.Ingest(context.Background(), []SourceFile{}))
	assert.Zero(t, p.Registry().Len())
}

func TestIngestVerifiesWithSynthesizedRefs(t *testing.T) {
	p := newTestPipeline(t, DelayConfirmer{Delay: 5 * time.Millisecond}, WithRefGenerator(NewRefGenerator(3)))

	file := SourceFile{Name: "scan.png", Size: 4, Content: []byte("\x89PNG")}
	progress := p.Ingest(context.Background(), []SourceFile{file, file})
	require.Len(t, progress, 2)
	assert.NotEqual(t, progress[0].ID, progress[1].ID)

	events := collect(progress[0])
	require.Len(t, events, 3)
	assert.Equal(t, StatusPending, events[0].To)
	assert.Equal(t, StatusProcessing, events[1].To)
	assert.Equal(t, StatusVerified, events[2].To)
	assert.Equal(t, StatusProcessing, events[2].From)

	records := waitAll(t, progress)
	for i, rec := range records {
		assert.Equal(t, i, rec.Seq)
		assert.Equal(t, StatusVerified, rec.Status)
		assert.Equal(t, CharCodeFingerprint("scan.png", 4), rec.Fingerprint)
		assert.Regexp(t, `^0x[0-9a-f]{16}$`, rec.LedgerRef)
		assert.Regexp(t, `^Qm[0-9a-z]{44}$`, rec.StorageRef)
		assert.Empty(t, rec.Failure)
	}
	assert.Equal(t, records[0].Fingerprint, records[1].Fingerprint)
	assert.NotEqual(t, records[0].LedgerRef, records[1].LedgerRef)
	assert.Equal(t, events[2].LedgerRef, records[0].LedgerRef)

	st := p.Registry().Stats()
	assert.Equal(t, 2, st.Verified)
	assert.Equal(t, 2, st.LedgerTxns)
}

func TestIngestKeepsConfirmerProof(t *testing.T) {
	c := ConfirmFunc(func(_ context.Context, f SourceFile) (Proof, error) {
		return Proof{LedgerRef: "0xfeed", StorageRef: "Qm" + f.Name}, nil
	})
	p := newTestPipeline(t, c)

	records := waitAll(t, p.Ingest(context.Background(), []SourceFile{{Name: "a.txt", Size: 1, Content: []byte("a")}}))
	assert.Equal(t, "0xfeed", records[0].LedgerRef)
	assert.Equal(t, "Qma.txt", records[0].StorageRef)
}

func TestIngestConfirmerReceivesContent(t *testing.T) {
	got := make(chan SourceFile, 1)
	c := ConfirmFunc(func(_ context.Context, f SourceFile) (Proof, error) {
		got <- f
		return Proof{}, nil
	})
	p := newTestPipeline(t, c)

	waitAll(t, p.Ingest(context.Background(), []SourceFile{{Name: "memo.txt", Size: 5, Content: []byte("hello")}}))
	f := <-got
	assert.Equal(t, "memo.txt", f.Name)
	assert.Equal(t, []byte("hello"), f.Content)
}

func TestIngestTransportFailure(t *testing.T) {
	c := ConfirmFunc(func(context.Context, SourceFile) (Proof, error) {
		return Proof{LedgerRef: "0xignored"}, &TransportError{StatusCode: 500, Err: errors.New("upload failed")}
	})
	p := newTestPipeline(t, c)

	progress := p.Ingest(context.Background(), []SourceFile{{Name: "a.txt", Size: 1}})
	events := collect(progress[0])
	require.Len(t, events, 3)
	assert.Equal(t, StatusError, events[2].To)
	assert.Equal(t, KindTransport, events[2].Failure)

	rec := waitAll(t, progress)[0]
	assert.Equal(t, StatusError, rec.Status)
	assert.Equal(t, KindTransport, rec.Failure)
	assert.Empty(t, rec.LedgerRef)
	assert.Empty(t, rec.StorageRef)
}

func blockingConfirmer(started chan<- struct{}) Confirmer {
	return ConfirmFunc(func(ctx context.Context, _ SourceFile) (Proof, error) {
		started <- struct{}{}
		<-ctx.Done()
		return Proof{}, ctx.Err()
	})
}

func TestCancelWhileProcessing(t *testing.T) {
	started := make(chan struct{}, 1)
	p := newTestPipeline(t, blockingConfirmer(started))

	progress := p.Ingest(context.Background(), []SourceFile{{Name: "a.txt", Size: 1}})
	<-started
	progress[0].Cancel()

	rec := waitAll(t, progress)[0]
	assert.Equal(t, StatusError, rec.Status)
	assert.Equal(t, KindCanceled, rec.Failure)
}

func TestCancelWhilePending(t *testing.T) {
	p := newTestPipeline(t, DelayConfirmer{}, WithStagger(time.Hour))

	progress := p.Ingest(context.Background(), []SourceFile{{Name: "a.txt", Size: 1}, {Name: "b.txt", Size: 1}})
	second := progress[1]
	second.Cancel()

	events := collect(second)
	require.Len(t, events, 3)
	assert.Equal(t, []Status{StatusPending, StatusProcessing, StatusError},
		[]Status{events[0].To, events[1].To, events[2].To})
	assert.Equal(t, KindCanceled, events[2].Failure)

	first := waitAll(t, progress[:1])[0]
	assert.Equal(t, StatusVerified, first.Status)
}

func TestParentContextCancelsProgressions(t *testing.T) {
	started := make(chan struct{}, 2)
	p := newTestPipeline(t, blockingConfirmer(started))

	ctx, cancel := context.WithCancel(context.Background())
	progress := p.Ingest(ctx, []SourceFile{{Name: "a.txt"}, {Name: "b.txt"}})
	<-started
	<-started
	cancel()

	for _, rec := range waitAll(t, progress) {
		assert.Equal(t, StatusError, rec.Status)
		assert.Equal(t, KindCanceled, rec.Failure)
	}
}

func TestSimulatorClose(t *testing.T) {
	started := make(chan struct{}, 1)
	reg := NewRegistry()
	sim := NewSimulator(reg, blockingConfirmer(started), nil)
	p := NewPipeline(reg, sim, nil)

	progress := p.Ingest(context.Background(), []SourceFile{{Name: "a.txt"}})
	<-started
	sim.Close()

	select {
	case <-progress[0].Done():
	default:
		t.Fatal("progression still running after Close")
	}
	rec, err := reg.Get(progress[0].ID)
	require.NoError(t, err)
	assert.Equal(t, KindCanceled, rec.Failure)
}

func TestProgressWaitHonorsContext(t *testing.T) {
	started := make(chan struct{}, 1)
	p := newTestPipeline(t, blockingConfirmer(started))

	progress := p.Ingest(context.Background(), []SourceFile{{Name: "a.txt"}})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := progress[0].Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipelineOptions(t *testing.T) {
	reg := NewRegistry()
	sim := NewSimulator(reg, DelayConfirmer{}, nil)
	t.Cleanup(sim.Close)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewPipeline(reg, sim, nil,
		WithFingerprint(RollingFingerprint),
		WithSigner(func(name string, _ time.Time) string { return "sig:" + name }),
		WithClock(func() time.Time { return at }),
	)

	rec := waitAll(t, p.Ingest(context.Background(), []SourceFile{{Name: "x.bin", Size: 9}}))[0]
	assert.Equal(t, RollingFingerprint("x.bin", 9), rec.Fingerprint)
	assert.Equal(t, RollingFingerprint("x.bin", 9), p.Fingerprint("x.bin", 9))
	assert.Equal(t, "sig:x.bin", rec.Signature)
	assert.Equal(t, at, rec.CreatedAt)
}

func TestProgressInitialIsPendingSnapshot(t *testing.T) {
	p := newTestPipeline(t, DelayConfirmer{})

	progress := p.Ingest(context.Background(), []SourceFile{{Name: "a.txt", Size: 1}, {Name: "b.txt", Size: 2}})
	records := waitAll(t, progress)
	for i, pr := range progress {
		initial := pr.Initial()
		assert.Equal(t, StatusPending, initial.Status)
		assert.Equal(t, i, initial.Seq)
		assert.Empty(t, initial.LedgerRef)
		assert.Equal(t, StatusVerified, records[i].Status)
	}
}
