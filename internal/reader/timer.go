package reader

import (
	"sort"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type TimerID uint64

type scheduled struct {
	id TimerID
	at time.Time
	fn func()
}

// TimerQueue runs scheduled callbacks when Run is called with a time at or
// after their deadline. Callbacks fire in deadline order, ties in
// scheduling order, on the goroutine calling Run.
type TimerQueue struct {
	mu    sync.Mutex
	items []scheduled
	next  TimerID
}

func NewTimerQueue() *TimerQueue {
	return &TimerQueue{}
}

func (q *TimerQueue) Schedule(at time.Time, fn func()) TimerID {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.next++
	item := scheduled{id: q.next, at: at, fn: fn}
	i := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].at.After(at)
	})
	q.items = append(q.items, scheduled{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = item

	return item.id
}

func (q *TimerQueue) Cancel(id TimerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, it := range q.items {
		if it.id == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}

	return false
}

// Run fires every callback due at now, including ones scheduled by other
// callbacks during this run, and returns how many fired.
func (q *TimerQueue) Run(now time.Time) int {
	fired := 0
	for {
		q.mu.Lock()
		if len(q.items) == 0 || q.items[0].at.After(now) {
			q.mu.Unlock()
			return fired
		}
		it := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		it.fn()
		fired++
	}
}

func (q *TimerQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// NextDeadline reports the earliest pending deadline.
func (q *TimerQueue) NextDeadline() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return time.Time{}, false
	}

	return q.items[0].at, true
}
