package evidence

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// RefGenerator fabricates placeholder ledger and storage references.
// The values are random and point at nothing.
type RefGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRefGenerator(seed uint64) *RefGenerator {
	return &RefGenerator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomRefGenerator seeds from the current time.
func NewRandomRefGenerator() *RefGenerator {
	return NewRefGenerator(uint64(time.Now().UnixNano()))
}

// LedgerRef returns "0x" followed by 16 hex digits.
func (g *RefGenerator) LedgerRef() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("0x%016x", g.rnd.Uint64())
}

// StorageRef returns "Qm" followed by 44 base-36 characters.
func (g *RefGenerator) StorageRef() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var b strings.Builder
	b.WriteString("Qm")
	for i := 0; i < 44; i++ {
		b.WriteByte(base36[g.rnd.IntN(len(base36))])
	}
	return b.String()
}

// Fill synthesizes any reference the confirmer did not supply.
func (g *RefGenerator) Fill(p Proof) Proof {
	if p.LedgerRef == "" {
		p.LedgerRef = g.LedgerRef()
	}
	if p.StorageRef == "" {
		p.StorageRef = g.StorageRef()
	}
	return p
}
