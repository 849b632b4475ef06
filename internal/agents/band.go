package agents

import (
	"fmt"

	"github.com/talgya/actorcore/internal/archive"
)

// MaxBandMembers is the most followers a single leader can have.
const MaxBandMembers = 32

// Band is a leader's set of followers. Order is not significant.
type Band struct {
	Leader  ObjectID
	members []ObjectID
}

// NewBand returns an empty band led by leader.
func NewBand(leader ObjectID) *Band {
	return &Band{Leader: leader, members: make([]ObjectID, 0, MaxBandMembers)}
}

// Add puts id in the band. Overflowing the band is fatal.
func (b *Band) Add(id ObjectID) {
	if b.Contains(id) {
		return
	}
	if len(b.members) >= MaxBandMembers {
		panic(fmt.Errorf("band led by %d: adding %d: %w", b.Leader, id, ErrCapacity))
	}
	b.members = append(b.members, id)
}

// Remove takes id out of the band if present.
func (b *Band) Remove(id ObjectID) {
	for i, m := range b.members {
		if m == id {
			last := len(b.members) - 1
			b.members[i] = b.members[last]
			b.members = b.members[:last]
			return
		}
	}
}

// Contains reports whether id is a member.
func (b *Band) Contains(id ObjectID) bool {
	for _, m := range b.members {
		if m == id {
			return true
		}
	}
	return false
}

// Size returns the number of followers.
func (b *Band) Size() int { return len(b.members) }

// Members returns the followers. The slice must not be modified.
func (b *Band) Members() []ObjectID { return b.members }

// Archive writes the leader, the member count and every member ID.
func (b *Band) Archive(w *archive.Writer) {
	w.U16(uint16(b.Leader))
	w.I16(int16(len(b.members)))
	for _, m := range b.members {
		w.U16(uint16(m))
	}
}

// RestoreBand reads a band written by Archive.
func RestoreBand(r *archive.Reader) *Band {
	b := NewBand(ObjectID(r.U16()))
	n := int(r.I16())
	if n < 0 || n > MaxBandMembers {
		r.Fail(fmt.Errorf("band led by %d: %d members: %w", b.Leader, n, ErrCapacity))
		return b
	}
	for i := 0; i < n; i++ {
		b.members = append(b.members, ObjectID(r.U16()))
	}
	return b
}
