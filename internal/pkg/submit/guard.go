// Package submit prevents duplicate clock submissions.
package submit

import (
	"sync"

	"github.com/google/uuid"
)

// Guard tracks one in-flight submission per key. Acquiring and releasing are
// single atomic map operations, so two concurrent callers can never both win.
type Guard struct {
	inflight sync.Map // key -> token id
}

// Token is held by the caller that won the guard.
type Token struct {
	key   string
	id    string
	guard *Guard
}

func NewGuard() *Guard {
	return &Guard{}
}

// Acquire claims key. ok is false when another submission for the same key
// has not finished yet.
func (g *Guard) Acquire(key string) (Token, bool) {
	id := uuid.NewString()
	if _, loaded := g.inflight.LoadOrStore(key, id); loaded {
		return Token{}, false
	}
	return Token{key: key, id: id, guard: g}, true
}

// InFlight reports whether key is currently claimed.
func (g *Guard) InFlight(key string) bool {
	_, ok := g.inflight.Load(key)
	return ok
}

// ID doubles as the idempotency key sent with the submission.
func (t Token) ID() string {
	return t.id
}

// Release frees the key. Releasing twice, or releasing a zero Token, is a no-op.
func (t Token) Release() {
	if t.guard == nil {
		return
	}
	t.guard.inflight.CompareAndDelete(t.key, t.id)
}
