package actor

import (
	"testing"
)

// TestScheduleAndPopDue verifies deadline ordering
func TestScheduleAndPopDue(t *testing.T) {
	th := newTimerHeap()

	th.Schedule(300, func() {})
	th.Schedule(100, func() {})
	th.Schedule(200, func() {})

	if th.Len() != 3 {
		t.Fatalf("expected 3 timers, got %d", th.Len())
	}

	// Nothing due before the earliest deadline
	if _, ok := th.PopDue(99); ok {
		t.Errorf("PopDue(99) should return nothing")
	}

	var deadlines []int64
	for {
		item, ok := th.PopDue(1000)
		if !ok {
			break
		}
		deadlines = append(deadlines, item.Deadline)
	}

	if len(deadlines) != 3 {
		t.Fatalf("expected 3 due timers, got %d", len(deadlines))
	}
	for i := 1; i < len(deadlines); i++ {
		if deadlines[i-1] > deadlines[i] {
			t.Errorf("deadlines popped out of order: %v", deadlines)
		}
	}
}

// TestCancel verifies cancellation by id
func TestCancel(t *testing.T) {
	th := newTimerHeap()

	id1 := th.Schedule(100, func() {})
	id2 := th.Schedule(200, func() {})

	if !th.Cancel(id1) {
		t.Errorf("Cancel of scheduled timer should succeed")
	}
	if th.Cancel(id1) {
		t.Errorf("second Cancel should fail")
	}

	item, ok := th.PopDue(1000)
	if !ok || item.ID != id2 {
		t.Errorf("expected timer %d to survive, got %+v", id2, item)
	}
	if th.Len() != 0 {
		t.Errorf("heap should be empty")
	}
}

// TestPeek verifies Peek does not remove
func TestPeek(t *testing.T) {
	th := newTimerHeap()

	if _, ok := th.Peek(); ok {
		t.Errorf("Peek on empty heap should fail")
	}

	th.Schedule(42, func() {})
	item, ok := th.Peek()
	if !ok || item.Deadline != 42 {
		t.Fatalf("unexpected peek result: %+v", item)
	}
	if th.Len() != 1 {
		t.Errorf("Peek must not remove")
	}
}
