package actor

import (
	"container/heap"
)

// This file provides the deadline queue backing Executor.ExecuteAfter.
//
// The implementation combines a binary heap ordered by deadline with a hash
// map keyed by timer id, giving O(log n) scheduling, firing and
// cancellation and O(1) lookup by id. It is not thread-safe; the executor
// goroutine is its only user.

// timerItem is one scheduled command
type timerItem struct {
	ID       uint64  // Unique identifier of the timer
	Deadline int64   // Absolute deadline in unix nanoseconds
	Cmd      Command // Command to submit when the deadline passes
	index    int     // Index in the heap, maintained by heap package
}

// timerHeap implements a deadline-ordered priority queue with key-based
// access
type timerHeap struct {
	items    []*timerItem
	itemsMap map[uint64]*timerItem
	nextID   uint64
}

// newTimerHeap creates an empty deadline queue
func newTimerHeap() *timerHeap {
	return &timerHeap{
		items:    make([]*timerItem, 0),
		itemsMap: make(map[uint64]*timerItem),
	}
}

// Len returns the number of scheduled timers (part of heap.Interface)
func (th *timerHeap) Len() int { return len(th.items) }

// Less orders by deadline, earliest first (part of heap.Interface)
func (th *timerHeap) Less(i, j int) bool {
	return th.items[i].Deadline < th.items[j].Deadline
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (th *timerHeap) Swap(i, j int) {
	th.items[i], th.items[j] = th.items[j], th.items[i]
	th.items[i].index = i
	th.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (th *timerHeap) Push(x interface{}) {
	n := len(th.items)
	item := x.(*timerItem)
	item.index = n
	th.items = append(th.items, item)
	th.itemsMap[item.ID] = item
}

// Pop removes and returns the earliest item (part of heap.Interface)
func (th *timerHeap) Pop() interface{} {
	old := th.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	th.items = old[:n-1]
	delete(th.itemsMap, item.ID)
	return item
}

// Schedule adds a command with an absolute deadline and returns its timer id
func (th *timerHeap) Schedule(deadline int64, cmd Command) uint64 {
	th.nextID++
	heap.Push(th, &timerItem{
		ID:       th.nextID,
		Deadline: deadline,
		Cmd:      cmd,
	})
	return th.nextID
}

// Cancel removes a scheduled timer by id. Returns false if it already fired
// or was cancelled.
func (th *timerHeap) Cancel(id uint64) bool {
	item, exists := th.itemsMap[id]
	if !exists {
		return false
	}
	heap.Remove(th, item.index)
	return true
}

// Peek returns the earliest scheduled item without removing it
func (th *timerHeap) Peek() (*timerItem, bool) {
	if len(th.items) == 0 {
		return nil, false
	}
	return th.items[0], true
}

// PopDue removes and returns the earliest item if its deadline is at or
// before now
func (th *timerHeap) PopDue(now int64) (*timerItem, bool) {
	head, ok := th.Peek()
	if !ok || head.Deadline > now {
		return nil, false
	}
	return heap.Pop(th).(*timerItem), true
}
