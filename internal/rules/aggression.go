package rules

import (
	"sync"

	"github.com/talgya/actorcore/internal/agents"
)

// DefaultLogSize is how many aggressive acts are remembered.
const DefaultLogSize = 256

// Aggression is one recorded attack or hostile spell.
type Aggression struct {
	Tick     uint64          `json:"tick"`
	Attacker agents.ObjectID `json:"attacker"`
	Target   agents.ObjectID `json:"target"`
}

// AggressionLog is a fixed-size ring of recent aggressive acts. It is read
// by the HTTP layer while the tick loop writes to it.
type AggressionLog struct {
	mu    sync.RWMutex
	ring  []Aggression
	next  int
	total uint64
}

func NewAggressionLog(size int) *AggressionLog {
	return &AggressionLog{ring: make([]Aggression, 0, max(size, 1))}
}

func (l *AggressionLog) Add(e Aggression) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ring) < cap(l.ring) {
		l.ring = append(l.ring, e)
	} else {
		l.ring[l.next] = e
	}
	l.next = (l.next + 1) % cap(l.ring)
	l.total++
}

// Len returns the number of acts held.
func (l *AggressionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ring)
}

// Total returns the number of acts ever recorded.
func (l *AggressionLog) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Recent returns up to n acts, newest first.
func (l *AggressionLog) Recent(n int) []Aggression {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n = min(n, len(l.ring))
	out := make([]Aggression, 0, n)
	for i := range n {
		out = append(out, l.ring[(l.next-1-i+cap(l.ring))%cap(l.ring)])
	}
	return out
}

// Against returns the recent acts aimed at target, newest first.
func (l *AggressionLog) Against(target agents.ObjectID) []Aggression {
	var out []Aggression
	for _, e := range l.Recent(cap(l.ring)) {
		if e.Target == target {
			out = append(out, e)
		}
	}
	return out
}
