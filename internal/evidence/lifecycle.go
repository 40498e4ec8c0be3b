package evidence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Progress is the handle on one record's progression. Events receives every
// transition of the record, starting with its pending event, and is closed
// once the record is terminal.
type Progress struct {
	ID string

	events  chan ProgressEvent
	done    chan struct{}
	cancel  context.CancelFunc
	initial Record
	final   Record
}

// Initial returns the record as it was when its progression started.
func (p *Progress) Initial() Record { return p.initial }

func (p *Progress) Events() <-chan ProgressEvent { return p.events }

func (p *Progress) Done() <-chan struct{} { return p.done }

// Cancel stops the progression. A record that is not yet terminal ends in
// error with failure kind "canceled".
func (p *Progress) Cancel() { p.cancel() }

// Wait blocks until the record is terminal and returns its final state.
func (p *Progress) Wait(ctx context.Context) (Record, error) {
	select {
	case <-p.done:
		return p.final, nil
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
}

// Simulator advances records pending -> processing -> verified|error. Each
// record runs on its own goroutine; only the registry serializes them.
type Simulator struct {
	registry  *Registry
	confirmer Confirmer
	refs      *RefGenerator
	stagger   time.Duration
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type SimulatorOption func(*Simulator)

// WithStagger delays the start of the i-th record of a batch by i*d.
func WithStagger(d time.Duration) SimulatorOption {
	return func(s *Simulator) { s.stagger = d }
}

func WithRefGenerator(g *RefGenerator) SimulatorOption {
	return func(s *Simulator) { s.refs = g }
}

func NewSimulator(registry *Registry, confirmer Confirmer, logger *zap.Logger, opts ...SimulatorOption) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Simulator{
		registry:  registry,
		confirmer: confirmer,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.refs == nil {
		s.refs = NewRandomRefGenerator()
	}
	return s
}

// Start launches the progression of record id, the index-th of its batch.
// The progression ends early when ctx is canceled or the simulator is closed.
func (s *Simulator) Start(ctx context.Context, id string, index int) *Progress {
	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	p := &Progress{
		ID:     id,
		events: make(chan ProgressEvent, 4),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	if rec, err := s.registry.Get(id); err == nil {
		p.initial = rec
		p.final = rec
		p.events <- eventFor(&rec, "")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		defer cancel()
		s.run(runCtx, p, index)
	}()
	return p
}

func (s *Simulator) run(ctx context.Context, p *Progress, index int) {
	defer close(p.done)
	defer close(p.events)

	if err := sleep(ctx, s.stagger*time.Duration(index)); err != nil {
		if s.advance(p, StatusPending, StatusProcessing, Proof{}, "") {
			s.fail(p, err)
		}
		return
	}
	if !s.advance(p, StatusPending, StatusProcessing, Proof{}, "") {
		return
	}

	file, err := s.registry.Source(p.ID)
	if err != nil {
		s.fail(p, err)
		return
	}
	proof, err := s.confirmer.Confirm(ctx, file)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		s.fail(p, err)
		return
	}
	s.advance(p, StatusProcessing, StatusVerified, s.refs.Fill(proof), "")
}

func (s *Simulator) fail(p *Progress, cause error) {
	kind := FailureKind(cause)
	s.logger.Warn("evidence confirmation failed",
		zap.String("record_id", p.ID),
		zap.String("file", p.final.FileName),
		zap.String("kind", kind),
		zap.Error(cause),
	)
	s.advance(p, StatusProcessing, StatusError, Proof{}, kind)
}

func (s *Simulator) advance(p *Progress, from, to Status, proof Proof, failure string) bool {
	rec, err := s.registry.Advance(p.ID, to, proof, failure)
	p.final = rec
	if err != nil {
		s.logger.Error("evidence transition rejected",
			zap.String("record_id", p.ID),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return false
	}
	s.logger.Debug("evidence transition",
		zap.String("record_id", p.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	p.events <- eventFor(&rec, from)
	return true
}

// Wait blocks until every started progression is terminal.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

// Close cancels all in-flight progressions and waits for them to settle.
func (s *Simulator) Close() {
	s.cancel()
	s.wg.Wait()
}
