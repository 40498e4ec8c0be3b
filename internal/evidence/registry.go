package evidence

import (
	"fmt"
	"sync"
	"time"
)

// Registry is the ordered, append-only collection of a session's records.
// Records are addressed by id; every write goes through the registry lock.
type Registry struct {
	mu      sync.RWMutex
	records []*Record
	byID    map[string]*Record

	subs    map[int]chan ProgressEvent
	nextSub int

	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]*Record),
		subs: make(map[int]chan ProgressEvent),
		now:  time.Now,
	}
}

// Append adds records in order, assigning their sequence numbers.
func (r *Registry) Append(recs ...*Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		rec.Seq = len(r.records)
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = rec.CreatedAt
		}
		r.records = append(r.records, rec)
		r.byID[rec.ID] = rec
		r.publish(eventFor(rec, ""))
	}
}

func (r *Registry) Get(id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// Source returns the file a record owns.
func (r *Registry) Source(id string) (SourceFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return SourceFile{}, ErrNotFound
	}
	return rec.source, nil
}

// List returns a snapshot of all records in submission order.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = *rec
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Advance moves a record to status to. References are attached only when to is
// verified; failure is recorded only when to is error.
func (r *Registry) Advance(id string, to Status, proof Proof, failure string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	from := rec.Status
	if !CanTransition(from, to) {
		return *rec, fmt.Errorf("%w: %s -> %s (allowed: %v)", ErrInvalidTransition, from, to, AllowedTransitions(from))
	}
	rec.Status = to
	rec.UpdatedAt = r.now()
	switch to {
	case StatusVerified:
		rec.LedgerRef = proof.LedgerRef
		rec.StorageRef = proof.StorageRef
	case StatusError:
		rec.Failure = failure
	}
	r.publish(eventFor(rec, from))
	return *rec, nil
}

// Subscribe returns a channel receiving every subsequent ProgressEvent and a
// function that ends the subscription. Events are dropped for a subscriber
// whose buffer is full.
func (r *Registry) Subscribe(buffer int) (<-chan ProgressEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan ProgressEvent, buffer)
	r.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, id)
			close(ch)
		})
	}
}

// publish must be called with r.mu held.
func (r *Registry) publish(ev ProgressEvent) {
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Stats summarizes the registry for the dashboard cards.
type Stats struct {
	Records     int     `json:"records"`
	Pending     int     `json:"pending"`
	Processing  int     `json:"processing"`
	Verified    int     `json:"verified"`
	Errored     int     `json:"errored"`
	LedgerTxns  int     `json:"ledgerTransactions"`
	SuccessRate float64 `json:"successRate"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Stats{Records: len(r.records)}
	txns := make(map[string]struct{})
	for _, rec := range r.records {
		switch rec.Status {
		case StatusPending:
			st.Pending++
		case StatusProcessing:
			st.Processing++
		case StatusVerified:
			st.Verified++
			txns[rec.LedgerRef] = struct{}{}
		case StatusError:
			st.Errored++
		}
	}
	st.LedgerTxns = len(txns)
	if done := st.Verified + st.Errored; done > 0 {
		st.SuccessRate = float64(st.Verified) / float64(done) * 100
	}
	return st
}
