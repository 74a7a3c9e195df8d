package proc

import (
	"errors"
	"testing"
)

func entry(id string) *Entry {
	return &Entry{URL: "https://www.youtube.com/watch?v=" + id, Title: id}
}

func titles(q *Queue) []string {
	var out []string
	for _, e := range q.Entries() {
		out = append(out, e.Title)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func fill(t *testing.T, ids ...string) *Queue {
	t.Helper()
	q := NewQueue()
	for _, id := range ids {
		if _, err := q.Enqueue(entry(id), nil); err != nil {
			t.Fatalf("Enqueue(%s): %v", id, err)
		}
	}
	return q
}

func TestQueueEnqueueDedup(t *testing.T) {
	q := NewQueue()
	cur := entry("playing")

	pos, err := q.Enqueue(entry("a"), cur)
	if err != nil || pos != 1 {
		t.Fatalf("Enqueue = %d, %v", pos, err)
	}
	if _, err := q.Enqueue(entry("a"), cur); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("queued duplicate: %v", err)
	}
	if _, err := q.Enqueue(entry("playing"), cur); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate of current: %v", err)
	}
	if _, err := q.Insert(entry("a"), cur, 1); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Insert duplicate: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d", q.Len())
	}
}

func TestQueueInsertClamps(t *testing.T) {
	tests := []struct {
		name string
		pos  int
		want []string
		at   int
	}{
		{"head", 1, []string{"x", "a", "b"}, 1},
		{"middle", 2, []string{"a", "x", "b"}, 2},
		{"below range", -4, []string{"x", "a", "b"}, 1},
		{"past end", 10, []string{"a", "b", "x"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := fill(t, "a", "b")
			at, err := q.Insert(entry("x"), nil, tt.pos)
			if err != nil || at != tt.at {
				t.Fatalf("Insert = %d, %v; want %d", at, err, tt.at)
			}
			if got := titles(q); !equal(got, tt.want) {
				t.Fatalf("queue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueueMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
		err      error
	}{
		{"down", 1, 3, []string{"b", "c", "a"}, nil},
		{"up", 3, 1, []string{"c", "a", "b"}, nil},
		{"same", 2, 2, []string{"a", "b", "c"}, nil},
		{"from zero", 0, 1, []string{"a", "b", "c"}, ErrOutOfRange},
		{"to past end", 1, 4, []string{"a", "b", "c"}, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := fill(t, "a", "b", "c")
			_, err := q.Move(tt.from, tt.to)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if got := titles(q); !equal(got, tt.want) {
				t.Fatalf("queue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueueRemoveAt(t *testing.T) {
	q := fill(t, "a", "b", "c")
	q.Repeat = true

	e, err := q.RemoveAt(2)
	if err != nil || e.Title != "b" {
		t.Fatalf("RemoveAt(2) = %v, %v", e, err)
	}
	if got := titles(q); !equal(got, []string{"a", "c"}) {
		t.Fatalf("queue = %v", got)
	}
	for _, s := range q.Snapshot() {
		if s.Title == "b" {
			t.Fatal("removed entry stayed in the repeat snapshot")
		}
	}
	for _, pos := range []int{0, 3, -1} {
		if _, err := q.RemoveAt(pos); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("RemoveAt(%d) = %v", pos, err)
		}
	}
}

func TestQueueShuffle(t *testing.T) {
	if err := fill(t, "a").Shuffle(); !errors.Is(err, ErrNotEnough) {
		t.Fatalf("Shuffle of one = %v", err)
	}

	q := fill(t, "a", "b", "c", "d", "e")
	if err := q.ShuffleFrom(1); err != nil {
		t.Fatalf("ShuffleFrom: %v", err)
	}
	got := titles(q)
	if got[0] != "a" || len(got) != 5 {
		t.Fatalf("queue after shuffle = %v", got)
	}
	seen := map[string]bool{}
	for _, s := range got {
		seen[s] = true
	}
	if len(seen) != 5 {
		t.Fatalf("shuffle lost entries: %v", got)
	}
}

func TestQueueRefill(t *testing.T) {
	q := fill(t, "a", "b")
	q.Drop(q.Len())
	if q.Refill() {
		t.Fatal("refilled without repeat")
	}

	q.Repeat = true
	if !q.CanRefill() || !q.Refill() {
		t.Fatal("repeat did not refill")
	}
	if got := titles(q); !equal(got, []string{"a", "b"}) {
		t.Fatalf("refilled = %v", got)
	}
	if q.Refill() {
		t.Fatal("refilled a non-empty queue")
	}
}

func TestQueueRefillAfterRequeue(t *testing.T) {
	q := NewQueue()
	a := entry("a")
	for _, e := range []*Entry{a, entry("b")} {
		if _, err := q.Enqueue(e, nil); err != nil {
			t.Fatal(err)
		}
	}
	if !q.Discard(a) {
		t.Fatal("Discard(a) = false")
	}
	if _, err := q.Enqueue(entry("a"), nil); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if _, err := q.Insert(entry("b"), nil, 1); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Insert duplicate: %v", err)
	}

	q.Repeat = true
	q.Drop(q.Len())
	if !q.Refill() {
		t.Fatal("repeat did not refill")
	}
	if got := titles(q); !equal(got, []string{"a", "b"}) {
		t.Fatalf("refilled = %v, want each song once", got)
	}
}

func TestQueueRefillResetsAttempts(t *testing.T) {
	q := NewQueue()
	e := entry("a")
	if _, err := q.Enqueue(e, nil); err != nil {
		t.Fatal(err)
	}
	e.Retries, e.Format, e.Alternate = 2, StrategyWorst, true
	q.Drop(1)
	q.Repeat = true
	q.Refill()

	got := q.Head()
	if got.Retries != 0 || got.Format != StrategyDefault || got.Alternate {
		t.Fatalf("refilled entry kept attempt state: %+v", got)
	}
}

func TestQueueDropAndDiscard(t *testing.T) {
	q := fill(t, "a", "b", "c")
	if n := q.Drop(5); n != 3 || q.Len() != 0 {
		t.Fatalf("Drop(5) = %d, len %d", n, q.Len())
	}

	q = fill(t, "a", "b")
	b := q.Entries()[1]
	if q.Discard(&b) {
		t.Fatal("Discard matched a copy instead of the queued pointer")
	}
	head := q.Head()
	if !q.Discard(head) || q.Len() != 1 || q.Index(head) != 0 {
		t.Fatal("Discard of head failed")
	}
}

func TestQueuePage(t *testing.T) {
	q := NewQueue()
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		q.Enqueue(entry(id), nil)
	}
	tests := []struct {
		page, size int
		want       []string
		pages      int
	}{
		{1, 2, []string{"1", "2"}, 3},
		{3, 2, []string{"5"}, 3},
		{9, 2, []string{"5"}, 3},
		{0, 10, []string{"1", "2", "3", "4", "5"}, 1},
	}
	for _, tt := range tests {
		got, pages := q.Page(tt.page, tt.size)
		var ts []string
		for _, e := range got {
			ts = append(ts, e.Title)
		}
		if !equal(ts, tt.want) || pages != tt.pages {
			t.Errorf("Page(%d, %d) = %v/%d, want %v/%d", tt.page, tt.size, ts, pages, tt.want, tt.pages)
		}
	}

	if got, pages := NewQueue().Page(1, 10); got != nil || pages != 1 {
		t.Errorf("empty Page = %v/%d", got, pages)
	}
}

func TestQueueClear(t *testing.T) {
	q := fill(t, "a", "b")
	q.Repeat, q.Loop = true, true
	q.Clear()
	if q.Len() != 0 || q.CanRefill() || q.Repeat || q.Loop {
		t.Fatalf("Clear left state behind: %+v", q)
	}
}
