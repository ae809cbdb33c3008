package domain

import "testing"

func TestItemQueueOrdering(t *testing.T) {
	var q ItemQueue

	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on an empty queue returned an item")
	}

	q.Push(CaptureItem{Seq: 1})
	q.Push(CaptureItem{Seq: 2})
	q.Push(CaptureItem{Seq: 3})
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	// PushFront restores an item ahead of everything queued.
	q.PushFront(CaptureItem{Seq: 99})

	wantOrder := []uint64{99, 1, 2, 3}
	for _, want := range wantOrder {
		item, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop returned no item, want Seq %d", want)
		}
		if item.Seq != want {
			t.Errorf("Pop Seq = %d, want %d", item.Seq, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after draining, want 0", q.Len())
	}
}

func TestItemQueueReset(t *testing.T) {
	var q ItemQueue
	q.Push(CaptureItem{Seq: 1})
	q.Push(CaptureItem{Seq: 2})
	q.Reset()
	if q.Len() != 0 {
		t.Errorf("Len = %d after Reset, want 0", q.Len())
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop after Reset returned an item")
	}
}

func TestPairQueueOrdering(t *testing.T) {
	var q PairQueue

	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on an empty queue returned a pair")
	}

	q.Push(CapturePair{Front: CaptureItem{Seq: 1}, Back: CaptureItem{Seq: 2}})
	q.Push(CapturePair{Front: CaptureItem{Seq: 3}, Back: CaptureItem{Seq: 4}})
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}

	first, ok := q.Pop()
	if !ok || first.Front.Seq != 1 || first.Back.Seq != 2 {
		t.Errorf("first pair = %+v, want Front.Seq=1 Back.Seq=2", first)
	}
	second, ok := q.Pop()
	if !ok || second.Front.Seq != 3 {
		t.Errorf("second pair = %+v, want Front.Seq=3", second)
	}

	q.Push(CapturePair{Front: CaptureItem{Seq: 5}})
	q.Reset()
	if q.Len() != 0 {
		t.Errorf("Len = %d after Reset, want 0", q.Len())
	}
}

func TestCaptureModeString(t *testing.T) {
	if got := SingleSided.String(); got != "single-sided" {
		t.Errorf("SingleSided.String() = %q", got)
	}
	if got := TwoSided.String(); got != "two-sided" {
		t.Errorf("TwoSided.String() = %q", got)
	}
	if got := CaptureMode(9).String(); got != "unknown" {
		t.Errorf("CaptureMode(9).String() = %q", got)
	}
}
