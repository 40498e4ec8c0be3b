package evidence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline turns submitted files into pending records and hands each one to
// the simulator.
type Pipeline struct {
	registry    *Registry
	sim         *Simulator
	fingerprint FingerprintFunc
	sign        SignFunc
	now         func() time.Time
	logger      *zap.Logger
}

type PipelineOption func(*Pipeline)

func WithFingerprint(f FingerprintFunc) PipelineOption {
	return func(p *Pipeline) { p.fingerprint = f }
}

func WithSigner(f SignFunc) PipelineOption {
	return func(p *Pipeline) { p.sign = f }
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(registry *Registry, sim *Simulator, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		registry:    registry,
		sim:         sim,
		fingerprint: CharCodeFingerprint,
		sign:        LabelSignature,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest appends one pending record per file, in submission order, and starts
// their progressions under ctx. An empty batch is a no-op. Identical files
// produce independent records.
func (p *Pipeline) Ingest(ctx context.Context, files []SourceFile) []*Progress {
	if len(files) == 0 {
		return nil
	}

	recs := make([]*Record, 0, len(files))
	for _, f := range files {
		created := p.now()
		recs = append(recs, &Record{
			ID:          uuid.NewString(),
			FileName:    f.Name,
			FileSize:    f.Size,
			Fingerprint: p.fingerprint(f.Name, f.Size),
			Signature:   p.sign(f.Name, created),
			Status:      StatusPending,
			CreatedAt:   created,
			source:      f,
		})
	}
	p.registry.Append(recs...)
	p.logger.Info("evidence batch ingested", zap.Int("files", len(recs)))

	progress := make([]*Progress, len(recs))
	for i, rec := range recs {
		progress[i] = p.sim.Start(ctx, rec.ID, i)
	}
	return progress
}

// Registry exposes the collection the pipeline appends to.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Fingerprint applies the pipeline's fingerprint function.
func (p *Pipeline) Fingerprint(name string, size int64) string {
	return p.fingerprint(name, size)
}
