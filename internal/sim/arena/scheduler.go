package arena

import (
	"container/heap"
	"time"
)

type effectKind uint8

const (
	effectStunExpire effectKind = iota + 1
	effectBarrierExpire
	effectMatchReset
)

// effect is a one-shot timed mutation. It names its target by id and is
// re-validated when it fires, so a target removed in the meantime turns it
// into a no-op.
type effect struct {
	at     time.Time
	seq    uint64
	kind   effectKind
	target string
}

type effectQueue []effect

func (q effectQueue) Len() int { return len(q) }
func (q effectQueue) Less(i, j int) bool {
	if !q[i].at.Equal(q[j].at) {
		return q[i].at.Before(q[j].at)
	}
	return q[i].seq < q[j].seq
}
func (q effectQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *effectQueue) Push(x any)   { *q = append(*q, x.(effect)) }
func (q *effectQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// scheduler orders effects by fire time, ties by insertion.
type scheduler struct {
	q   effectQueue
	seq uint64
}

func (s *scheduler) schedule(at time.Time, kind effectKind, target string) {
	s.seq++
	heap.Push(&s.q, effect{at: at, seq: s.seq, kind: kind, target: target})
}

// popDue removes and returns the earliest effect due at or before now.
func (s *scheduler) popDue(now time.Time) (effect, bool) {
	if len(s.q) == 0 || s.q[0].at.After(now) {
		return effect{}, false
	}
	return heap.Pop(&s.q).(effect), true
}

func (s *scheduler) len() int { return len(s.q) }

func (s *scheduler) clear() { s.q = s.q[:0] }
