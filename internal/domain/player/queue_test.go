package player_test

import (
	"testing"

	"github.com/rythmtune/rythmtune-backend/internal/domain/player"
)

func track(id string) player.Track {
	return player.Track{ID: id, Title: "Track " + id, ArtistName: "Artist"}
}

func queueIDs(q *player.Queue) []string {
	items := q.Items()
	ids := make([]string, len(items))
	for i, t := range items {
		ids[i] = t.ID
	}
	return ids
}

func TestNewQueueEmpty(t *testing.T) {
	q := player.NewQueue()
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d items", q.Len())
	}
	if q.Cursor() != player.NoCursor {
		t.Errorf("expected cursor %d, got %d", player.NoCursor, q.Cursor())
	}
}

func TestQueueAddDeduplicates(t *testing.T) {
	q := player.NewQueue()
	if !q.Add(track("a1")) {
		t.Error("expected first add to succeed")
	}
	if q.Add(track("a1")) {
		t.Error("expected duplicate add to be rejected")
	}
	if q.Len() != 1 {
		t.Errorf("expected 1 item, got %d", q.Len())
	}
}

func TestQueueReplace(t *testing.T) {
	q := player.NewQueue()
	q.Add(track("old"))

	q.Replace([]player.Track{track("a"), track("b"), track("c")}, 1)
	if got := queueIDs(q); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("unexpected queue after replace: %v", got)
	}
	if q.Cursor() != 1 {
		t.Errorf("expected cursor 1, got %d", q.Cursor())
	}
}

func TestQueueAppendUnique(t *testing.T) {
	tests := []struct {
		name     string
		initial  []player.Track
		append   []player.Track
		limit    int
		expected []string
	}{
		{
			name:     "skips existing IDs",
			initial:  []player.Track{track("a"), track("b")},
			append:   []player.Track{track("b"), track("c"), track("a"), track("d")},
			limit:    15,
			expected: []string{"a", "b", "c", "d"},
		},
		{
			name:     "respects limit",
			initial:  []player.Track{track("a")},
			append:   []player.Track{track("b"), track("c"), track("d")},
			limit:    2,
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "skips duplicates within the batch",
			initial:  nil,
			append:   []player.Track{track("x"), track("x"), track("y")},
			limit:    15,
			expected: []string{"x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := player.NewQueue()
			q.Replace(tt.initial, player.NoCursor)
			q.AppendUnique(tt.append, tt.limit)

			got := queueIDs(q)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestQueueIndexOf(t *testing.T) {
	q := player.NewQueue()
	q.Replace([]player.Track{track("a"), track("b")}, 0)

	if i := q.IndexOf("b"); i != 1 {
		t.Errorf("expected index 1, got %d", i)
	}
	if i := q.IndexOf("missing"); i != -1 {
		t.Errorf("expected -1, got %d", i)
	}
}

func TestQueueUpdateAt(t *testing.T) {
	q := player.NewQueue()
	q.Replace([]player.Track{track("a")}, 0)

	updated := track("a")
	updated.StreamURL = "https://cdn.example.com/a"
	q.UpdateAt(0, updated)

	got, ok := q.At(0)
	if !ok || got.StreamURL != "https://cdn.example.com/a" {
		t.Errorf("expected updated stream URL, got %+v", got)
	}

	// Out of bounds is a no-op.
	q.UpdateAt(5, track("z"))
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}
