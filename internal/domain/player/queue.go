package player

import "sync"

const (
	// NoCursor is the cursor value when nothing is playing.
	NoCursor = -1

	// RadioSeedLimit caps the related tracks appended when a radio queue is
	// first seeded.
	RadioSeedLimit = 20

	// RadioGrowLimit caps the related tracks appended when playback
	// approaches the queue tail.
	RadioGrowLimit = 15
)

// Queue is the ordered playback sequence plus the cursor of the current
// track. It is safe for concurrent access.
type Queue struct {
	mu     sync.RWMutex
	items  []Track
	cursor int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{cursor: NoCursor}
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// Cursor returns the index of the current track, or NoCursor.
func (q *Queue) Cursor() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.cursor
}

// SetCursor moves the cursor. The caller is responsible for bounds.
func (q *Queue) SetCursor(i int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cursor = i
}

// At returns the track at index i.
func (q *Queue) At(i int) (Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if i < 0 || i >= len(q.items) {
		return Track{}, false
	}
	return q.items[i], true
}

// Last returns the final queued track.
func (q *Queue) Last() (Track, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.items) == 0 {
		return Track{}, false
	}
	return q.items[len(q.items)-1], true
}

// Items returns a copy of the queued tracks.
func (q *Queue) Items() []Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	items := make([]Track, len(q.items))
	copy(items, q.items)
	return items
}

// IndexOf returns the index of the track with the given ID, or -1.
func (q *Queue) IndexOf(id string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.indexOfLocked(id)
}

func (q *Queue) indexOfLocked(id string) int {
	for i, t := range q.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Replace swaps the whole queue and cursor, for explicit playlist playback
// or a fresh radio seed.
func (q *Queue) Replace(items []Track, cursor int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make([]Track, len(items))
	copy(q.items, items)
	q.cursor = cursor
}

// Add appends a track unless its ID is already queued. Returns true if the
// track was added.
func (q *Queue) Add(track Track) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.indexOfLocked(track.ID) != -1 {
		return false
	}
	q.items = append(q.items, track)
	return true
}

// AppendUnique appends up to limit tracks whose IDs are not already queued,
// preserving order. Returns the number appended. This is the merge used by
// radio growth: the queue may have changed since the candidates were fetched,
// so existing entries always win.
func (q *Queue) AppendUnique(tracks []Track, limit int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	existing := make(map[string]struct{}, len(q.items))
	for _, t := range q.items {
		existing[t.ID] = struct{}{}
	}

	added := 0
	for _, t := range tracks {
		if added >= limit {
			break
		}
		if _, ok := existing[t.ID]; ok {
			continue
		}
		existing[t.ID] = struct{}{}
		q.items = append(q.items, t)
		added++
	}
	return added
}

// UpdateAt replaces the track at index i, used to merge resolved metadata
// back into the queue entry.
func (q *Queue) UpdateAt(i int, track Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.items) {
		return
	}
	q.items[i] = track
}

// ToJSON returns the queue in the shape pushed to clients.
func (q *Queue) ToJSON() map[string]interface{} {
	q.mu.RLock()
	defer q.mu.RUnlock()

	items := make([]Track, len(q.items))
	copy(items, q.items)
	return map[string]interface{}{
		"items":  items,
		"cursor": q.cursor,
	}
}
