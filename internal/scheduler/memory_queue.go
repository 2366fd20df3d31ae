package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// MemoryQueue is a single process min-heap queue used when Redis is disabled.
type MemoryQueue struct {
	mu     sync.Mutex
	items  entryHeap
	byID   map[int64]*heapItem
	buried map[int64]bool
}

type heapItem struct {
	entry Entry
	index int
}

type entryHeap []*heapItem

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].entry.FireAt.Equal(h[j].entry.FireAt) {
		return h[i].entry.MissionID < h[j].entry.MissionID
	}
	return h[i].entry.FireAt.Before(h[j].entry.FireAt)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{byID: make(map[int64]*heapItem), buried: make(map[int64]bool)}
}

func (q *MemoryQueue) Push(_ context.Context, e Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.buried, e.MissionID)
	if item, ok := q.byID[e.MissionID]; ok {
		item.entry = e
		heap.Fix(&q.items, item.index)
		return nil
	}

	item := &heapItem{entry: e}
	heap.Push(&q.items, item)
	q.byID[e.MissionID] = item
	return nil
}

func (q *MemoryQueue) Remove(_ context.Context, missionID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item, ok := q.byID[missionID]; ok {
		heap.Remove(&q.items, item.index)
		delete(q.byID, missionID)
	}
	delete(q.buried, missionID)
	return nil
}

func (q *MemoryQueue) PopDue(_ context.Context, now time.Time, limit int) ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []Entry
	for q.items.Len() > 0 && len(due) < limit {
		next := q.items[0]
		if next.entry.FireAt.After(now) {
			break
		}
		heap.Pop(&q.items)
		delete(q.byID, next.entry.MissionID)
		due = append(due, next.entry)
	}
	return due, nil
}

func (q *MemoryQueue) Contains(_ context.Context, missionID int64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.byID[missionID]
	return ok, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len(), nil
}

func (q *MemoryQueue) Bury(_ context.Context, missionID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buried[missionID] = true
	return nil
}

func (q *MemoryQueue) Buried(_ context.Context, missionID int64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buried[missionID], nil
}
