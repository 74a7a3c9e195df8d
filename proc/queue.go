package proc

import (
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
)

// Entry is one requested song. Its URL is normalized and identifies it for dedup.
type Entry struct {
	URL          string        `json:"url"`
	Title        string        `json:"title"`
	Duration     time.Duration `json:"duration"`
	Resolved     bool          `json:"resolved"`
	Streaming    bool          `json:"streaming"`
	RequestedBy  snowflake.ID  `json:"requestedBy"`
	ReplyChannel snowflake.ID  `json:"-"`
	Format       Strategy      `json:"format"`
	Retries      int           `json:"retries"`
	Alternate    bool          `json:"alternate"`
	AddedAt      time.Time     `json:"addedAt"`
}

// Queue is the ordered list of pending entries plus the repeat snapshot.
// It is not safe for concurrent use; the driver's owner goroutine holds it.
type Queue struct {
	entries  []*Entry
	snapshot []Entry
	Repeat   bool
	Loop     bool
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Len() int { return len(q.entries) }

// Contains reports whether url is already queued.
func (q *Queue) Contains(url string) bool {
	return slices.ContainsFunc(q.entries, func(e *Entry) bool { return e.URL == url })
}

func (q *Queue) isDuplicate(e *Entry, current *Entry) bool {
	if current != nil && current.URL == e.URL {
		return true
	}
	return q.Contains(e.URL)
}

// Enqueue appends e unless its URL matches a queued entry or current.
// It returns the 1-indexed position of the new entry.
func (q *Queue) Enqueue(e *Entry, current *Entry) (int, error) {
	if q.isDuplicate(e, current) {
		return 0, ErrDuplicate
	}
	q.entries = append(q.entries, e)
	q.remember(e)
	return len(q.entries), nil
}

// remember adds e to the repeat snapshot once per URL.
func (q *Queue) remember(e *Entry) {
	if slices.ContainsFunc(q.snapshot, func(s Entry) bool { return s.URL == e.URL }) {
		return
	}
	q.snapshot = append(q.snapshot, *e)
}

// Insert places e at the 1-indexed pos, clamped to the valid range, subject to
// the same dedup rule. It returns the position actually used.
func (q *Queue) Insert(e *Entry, current *Entry, pos int) (int, error) {
	if q.isDuplicate(e, current) {
		return 0, ErrDuplicate
	}
	pos = min(max(pos, 1), len(q.entries)+1)
	q.entries = slices.Insert(q.entries, pos-1, e)
	q.remember(e)
	return pos, nil
}

// Head returns the first entry without removing it, or nil when empty.
func (q *Queue) Head() *Entry {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

func (q *Queue) checkPos(pos int) error {
	if pos < 1 || pos > len(q.entries) {
		return ErrOutOfRange
	}
	return nil
}

// Move relocates the entry at from to position to; both are 1-indexed.
func (q *Queue) Move(from, to int) (*Entry, error) {
	if err := q.checkPos(from); err != nil {
		return nil, err
	}
	if err := q.checkPos(to); err != nil {
		return nil, err
	}
	e := q.entries[from-1]
	q.entries = slices.Delete(q.entries, from-1, from)
	q.entries = slices.Insert(q.entries, to-1, e)
	return e, nil
}

// RemoveAt deletes the entry at the 1-indexed pos.
func (q *Queue) RemoveAt(pos int) (*Entry, error) {
	if err := q.checkPos(pos); err != nil {
		return nil, err
	}
	e := q.entries[pos-1]
	q.entries = slices.Delete(q.entries, pos-1, pos)
	q.snapshot = slices.DeleteFunc(q.snapshot, func(s Entry) bool { return s.URL == e.URL })
	return e, nil
}

// Shuffle permutes the queue uniformly. Fewer than two entries is ErrNotEnough.
func (q *Queue) Shuffle() error {
	return q.ShuffleFrom(0)
}

// ShuffleFrom permutes everything after the first skip entries, leaving those in place.
func (q *Queue) ShuffleFrom(skip int) error {
	skip = min(max(skip, 0), len(q.entries))
	if len(q.entries)-skip < 2 {
		return ErrNotEnough
	}
	lo.Shuffle(q.entries[skip:])
	return nil
}

// Discard removes e by identity wherever it sits. It reports whether e was queued.
func (q *Queue) Discard(e *Entry) bool {
	i := slices.Index(q.entries, e)
	if i < 0 {
		return false
	}
	q.entries = slices.Delete(q.entries, i, i+1)
	return true
}

// Index returns the 1-indexed position of e, or 0.
func (q *Queue) Index(e *Entry) int {
	return slices.Index(q.entries, e) + 1
}

// Drop discards up to n entries from the head and returns how many went.
func (q *Queue) Drop(n int) int {
	n = min(max(n, 0), len(q.entries))
	clear(q.entries[:n])
	q.entries = q.entries[n:]
	return n
}

// Refill copies the snapshot back into an empty queue when repeat is on.
// Each URL comes back once.
func (q *Queue) Refill() bool {
	if !q.Repeat || len(q.entries) > 0 || len(q.snapshot) == 0 {
		return false
	}
	q.snapshot = lo.UniqBy(q.snapshot, func(s Entry) string { return s.URL })
	q.entries = make([]*Entry, 0, len(q.snapshot))
	for _, s := range q.snapshot {
		e := s
		e.Retries = 0
		e.Format = StrategyDefault
		e.Alternate = false
		q.entries = append(q.entries, &e)
	}
	return true
}

// CanRefill reports whether Refill would repopulate an empty queue.
func (q *Queue) CanRefill() bool {
	return q.Repeat && len(q.snapshot) > 0
}

// ClearSnapshot forgets the repeat snapshot.
func (q *Queue) ClearSnapshot() {
	q.snapshot = nil
}

// Clear empties the queue and snapshot and resets both modes.
func (q *Queue) Clear() {
	q.entries = nil
	q.snapshot = nil
	q.Repeat = false
	q.Loop = false
}

// Entries returns a copy of the queued entries in order.
func (q *Queue) Entries() []Entry {
	return lo.Map(q.entries, func(e *Entry, _ int) Entry { return *e })
}

// Snapshot returns a copy of the repeat snapshot.
func (q *Queue) Snapshot() []Entry {
	return slices.Clone(q.snapshot)
}

// Page returns the 1-indexed page of entries and the total page count.
func (q *Queue) Page(page, size int) ([]Entry, int) {
	if size <= 0 {
		size = 10
	}
	pages := max(1, (len(q.entries)+size-1)/size)
	page = min(max(page, 1), pages)
	chunks := lo.Chunk(q.Entries(), size)
	if len(chunks) == 0 {
		return nil, pages
	}
	return chunks[page-1], pages
}

// Restore replaces queue and snapshot from a backup.
func (q *Queue) Restore(entries, snapshot []Entry, repeat, loop bool) {
	q.entries = lo.Map(entries, func(e Entry, _ int) *Entry { return &e })
	q.snapshot = slices.Clone(snapshot)
	q.Repeat = repeat
	q.Loop = loop
}
