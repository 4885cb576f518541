package player_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rythmtune/rythmtune-backend/internal/domain/player"
	"github.com/rythmtune/rythmtune-backend/internal/infra/library"
	"github.com/rythmtune/rythmtune-backend/internal/infra/streamapi"
)

func rec(id, title string) streamapi.TrackRecord {
	return streamapi.TrackRecord{VideoID: id, Title: title, Artist: "Artist"}
}

// waitFor polls cond until it holds or the test times out. The controller
// completes resolutions and queue growth on background goroutines.
func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

type fakeSource struct {
	mu           sync.Mutex
	streams      map[string]*streamapi.StreamInfo
	errs         map[string]error
	related      map[string][]streamapi.TrackRecord
	resolveGates map[string]chan struct{}
	relatedGates map[string]chan struct{}
	resolveCalls []string
	relatedCalls []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		streams:      make(map[string]*streamapi.StreamInfo),
		errs:         make(map[string]error),
		related:      make(map[string][]streamapi.TrackRecord),
		resolveGates: make(map[string]chan struct{}),
		relatedGates: make(map[string]chan struct{}),
	}
}

func (f *fakeSource) stream(id, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[id] = &streamapi.StreamInfo{URL: url, Duration: 100}
}

func (f *fakeSource) gateResolve(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.resolveGates[id] = gate
	return gate
}

func (f *fakeSource) gateRelated(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.relatedGates[id] = gate
	return gate
}

func (f *fakeSource) Resolve(ctx context.Context, trackID string) (*streamapi.StreamInfo, error) {
	f.mu.Lock()
	f.resolveCalls = append(f.resolveCalls, trackID)
	gate := f.resolveGates[trackID]
	info := f.streams[trackID]
	err := f.errs[trackID]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, streamapi.ErrUnplayable
	}
	cp := *info
	return &cp, nil
}

func (f *fakeSource) Related(ctx context.Context, trackID string) []streamapi.TrackRecord {
	f.mu.Lock()
	f.relatedCalls = append(f.relatedCalls, trackID)
	gate := f.relatedGates[trackID]
	recs := f.related[trackID]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return recs
}

func (f *fakeSource) resolveCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.resolveCalls {
		if c == id {
			n++
		}
	}
	return n
}

func (f *fakeSource) relatedCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.relatedCalls {
		if c == id {
			n++
		}
	}
	return n
}

type fakeElement struct {
	mu      sync.Mutex
	sources []string
	plays   int
	pauses  int
	seeks   []float64
	volumes []float64
}

func (f *fakeElement) SetSource(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, url)
	return nil
}

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return nil
}

func (f *fakeElement) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeElement) SeekTo(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeElement) SetVolume(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, v)
	return nil
}

func (f *fakeElement) lastSource() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sources) == 0 {
		return ""
	}
	return f.sources[len(f.sources)-1]
}

func (f *fakeElement) sourceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sources)
}

type fakeLibrary struct {
	mu        sync.Mutex
	favorites map[string]struct{}
	history   []*library.HistoryEntry
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{favorites: make(map[string]struct{})}
}

func (f *fakeLibrary) key(userID, videoID string) string { return userID + "/" + videoID }

func (f *fakeLibrary) IsFavorite(userID, videoID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.favorites[f.key(userID, videoID)]
	return ok, nil
}

func (f *fakeLibrary) InsertFavorite(fav *library.Favorite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favorites[f.key(fav.UserID, fav.VideoID)] = struct{}{}
	return nil
}

func (f *fakeLibrary) DeleteFavorite(userID, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.favorites, f.key(userID, videoID))
	return nil
}

func (f *fakeLibrary) AppendHistory(entry *library.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeLibrary) historyLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}

func TestPlaySongOptimisticRender(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	gate := src.gateResolve("a1")

	el := &fakeElement{}
	c := player.NewController(src, player.WithElement(el))

	c.PlaySong(context.Background(), rec("a1", "Song A"), nil, false)

	track, ok := c.CurrentTrack()
	if !ok {
		t.Fatal("expected a current track before resolution")
	}
	if track.Title != "Song A" || track.ArtistName != "Artist" {
		t.Errorf("expected optimistic metadata, got %+v", track)
	}
	if track.StreamURL != "" {
		t.Error("expected no stream URL before resolution")
	}
	snap := c.State().Clone()
	if !snap.IsLoading || snap.IsPlaying {
		t.Errorf("expected resolving state, got loading=%v playing=%v", snap.IsLoading, snap.IsPlaying)
	}

	close(gate)

	waitFor(t, "resolution", func() bool {
		track, _ := c.CurrentTrack()
		return track.StreamURL != ""
	})
	track, _ = c.CurrentTrack()
	if track.StreamURL != "https://cdn.example.com/a1" {
		t.Errorf("unexpected stream URL %q", track.StreamURL)
	}
	snap = c.State().Clone()
	if snap.IsLoading || !snap.IsPlaying {
		t.Errorf("expected playing state, got loading=%v playing=%v", snap.IsLoading, snap.IsPlaying)
	}
	if el.lastSource() != track.StreamURL {
		t.Errorf("expected element source %q, got %q", track.StreamURL, el.lastSource())
	}
}

func TestPlaySongResolutionFailure(t *testing.T) {
	src := newFakeSource()
	c := player.NewController(src)

	c.PlaySong(context.Background(), rec("gone", "Missing"), nil, false)

	waitFor(t, "failed resolution", func() bool {
		return !c.State().Clone().IsLoading
	})
	snap := c.State().Clone()
	if snap.IsPlaying {
		t.Error("expected not playing after failed resolution")
	}
	track, _ := c.CurrentTrack()
	if track.StreamURL != "" {
		t.Errorf("expected no stream URL, got %q", track.StreamURL)
	}
	if track.Title != "Missing" {
		t.Errorf("expected optimistic track to survive, got %+v", track)
	}
}

func TestPlaySongRadioSeed(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	src.related["a1"] = []streamapi.TrackRecord{
		rec("b1", "Song B"),
		rec("c1", "Song C"),
		rec("a1", "Song A"), // seed must be filtered out
	}
	c := player.NewController(src)

	c.PlaySong(context.Background(), rec("a1", "Song A"), nil, false)

	waitFor(t, "radio seed", func() bool { return c.Queue().Len() == 3 })
	got := queueIDs(c.Queue())
	expected := []string{"a1", "b1", "c1"}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected queue %v, got %v", expected, got)
		}
	}
	if c.Queue().Cursor() != 0 {
		t.Errorf("expected cursor 0, got %d", c.Queue().Cursor())
	}
}

func TestPlaySongExplicitPlaylist(t *testing.T) {
	src := newFakeSource()
	src.stream("b1", "https://cdn.example.com/b1")
	c := player.NewController(src)

	override := []streamapi.TrackRecord{rec("a1", "A"), rec("b1", "B"), rec("c1", "C")}
	c.PlaySong(context.Background(), rec("b1", "B"), override, true)

	if c.Queue().Len() != 3 {
		t.Fatalf("expected 3 queued tracks, got %d", c.Queue().Len())
	}
	if c.Queue().Cursor() != 1 {
		t.Errorf("expected cursor 1, got %d", c.Queue().Cursor())
	}

	waitFor(t, "resolution", func() bool { return !c.State().Clone().IsLoading })
	if n := src.relatedCount("b1"); n != 0 {
		t.Errorf("expected no related fetch for explicit playlist, got %d", n)
	}
}

func TestPlaySongExplicitPlaylistMissingTrack(t *testing.T) {
	src := newFakeSource()
	src.stream("x1", "https://cdn.example.com/x1")
	c := player.NewController(src)

	override := []streamapi.TrackRecord{rec("a1", "A"), rec("b1", "B")}
	c.PlaySong(context.Background(), rec("x1", "X"), override, true)

	// The requested track was not in the override, so it is inserted and the
	// cursor points at it.
	if c.Queue().Len() != 3 {
		t.Fatalf("expected 3 queued tracks, got %d", c.Queue().Len())
	}
	if c.Queue().Cursor() != 2 {
		t.Errorf("expected cursor 2, got %d", c.Queue().Cursor())
	}
	current, _ := c.CurrentTrack()
	if current.ID != "x1" {
		t.Errorf("expected current track x1, got %q", current.ID)
	}
}

func TestStaleRadioSeedDiscarded(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	src.stream("b1", "https://cdn.example.com/b1")
	src.related["a1"] = []streamapi.TrackRecord{rec("a2", "A2"), rec("a3", "A3")}
	src.related["b1"] = []streamapi.TrackRecord{rec("b2", "B2")}
	gate := src.gateRelated("a1")

	c := player.NewController(src)
	c.PlaySong(context.Background(), rec("a1", "Song A"), nil, false)
	c.PlaySong(context.Background(), rec("b1", "Song B"), nil, false)

	waitFor(t, "second radio seed", func() bool { return c.Queue().Len() == 2 })
	close(gate) // the stale fetch for a1 now completes

	time.Sleep(50 * time.Millisecond)
	got := queueIDs(c.Queue())
	if len(got) != 2 || got[0] != "b1" || got[1] != "b2" {
		t.Errorf("expected queue [b1 b2], got %v", got)
	}
}

func TestStaleResolutionDiscarded(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	src.stream("b1", "https://cdn.example.com/b1")
	gate := src.gateResolve("a1")

	el := &fakeElement{}
	c := player.NewController(src, player.WithElement(el))

	c.PlaySong(context.Background(), rec("a1", "Song A"), nil, false)
	c.PlaySong(context.Background(), rec("b1", "Song B"), nil, false)

	waitFor(t, "newer resolution", func() bool {
		track, _ := c.CurrentTrack()
		return track.StreamURL != ""
	})
	close(gate) // the superseded resolution for a1 now completes

	time.Sleep(50 * time.Millisecond)
	track, _ := c.CurrentTrack()
	if track.ID != "b1" || track.StreamURL != "https://cdn.example.com/b1" {
		t.Errorf("expected current track b1, got %+v", track)
	}
	if el.sourceCount() != 1 || el.lastSource() != "https://cdn.example.com/b1" {
		t.Errorf("expected a single source set to b1, got %v", el.sources)
	}
	if !c.State().Clone().IsPlaying {
		t.Error("expected playing state to survive the stale completion")
	}
}

func TestPlayNextWrapsSingleItemQueue(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	c := player.NewController(src)

	c.PlaySong(context.Background(), rec("a1", "Song A"), nil, false)
	waitFor(t, "initial resolution", func() bool { return !c.State().Clone().IsLoading })

	c.PlayNext(context.Background())
	if c.Queue().Cursor() != 0 {
		t.Errorf("expected cursor to wrap to 0, got %d", c.Queue().Cursor())
	}
	waitFor(t, "re-resolution", func() bool { return src.resolveCount("a1") == 2 })
}

func TestPlayNextAtTailWrapsAndGrows(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	src.stream("b1", "https://cdn.example.com/b1")
	src.related["b1"] = []streamapi.TrackRecord{rec("c1", "C"), rec("a1", "A")}
	c := player.NewController(src)

	override := []streamapi.TrackRecord{rec("a1", "A"), rec("b1", "B")}
	c.PlaySong(context.Background(), rec("b1", "B"), override, true)
	waitFor(t, "initial resolution", func() bool { return !c.State().Clone().IsLoading })

	c.PlayNext(context.Background())
	if c.Queue().Cursor() != 0 {
		t.Errorf("expected cursor to wrap to 0, got %d", c.Queue().Cursor())
	}

	// Growth is seeded from the last queued track and merged with dedupe.
	waitFor(t, "queue growth", func() bool { return c.Queue().Len() == 3 })
	got := queueIDs(c.Queue())
	if got[2] != "c1" {
		t.Errorf("expected grown queue [a1 b1 c1], got %v", got)
	}
	if n := src.relatedCount("b1"); n != 1 {
		t.Errorf("expected one related fetch for b1, got %d", n)
	}
}

func TestPlayNextShuffle(t *testing.T) {
	src := newFakeSource()
	src.stream("c1", "https://cdn.example.com/c1")
	picks := []int{2}
	c := player.NewController(src, player.WithRandIntn(func(n int) int {
		pick := picks[0]
		if pick >= n {
			t.Fatalf("shuffle pick %d out of range %d", pick, n)
		}
		return pick
	}))

	override := []streamapi.TrackRecord{rec("a1", "A"), rec("b1", "B"), rec("c1", "C")}
	c.PlaySong(context.Background(), rec("a1", "A"), override, true)
	c.SetShuffle(true)

	c.PlayNext(context.Background())
	if c.Queue().Cursor() != 2 {
		t.Errorf("expected shuffled cursor 2, got %d", c.Queue().Cursor())
	}
	current, _ := c.CurrentTrack()
	if current.ID != "c1" {
		t.Errorf("expected current track c1, got %q", current.ID)
	}
}

func TestPlayNextEmptyQueueNoop(t *testing.T) {
	src := newFakeSource()
	c := player.NewController(src)

	c.PlayNext(context.Background())
	c.PlayPrev(context.Background())

	if len(src.resolveCalls) != 0 {
		t.Errorf("expected no resolutions on empty queue, got %v", src.resolveCalls)
	}
}

func TestPlayPrevWrapsToLastAndReseeds(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	src.stream("c1", "https://cdn.example.com/c1")
	src.related["c1"] = []streamapi.TrackRecord{rec("d1", "D")}
	c := player.NewController(src)

	override := []streamapi.TrackRecord{rec("a1", "A"), rec("b1", "B"), rec("c1", "C")}
	c.PlaySong(context.Background(), rec("a1", "A"), override, true)
	waitFor(t, "initial resolution", func() bool { return !c.State().Clone().IsLoading })

	c.PlayPrev(context.Background())

	current, _ := c.CurrentTrack()
	if current.ID != "c1" {
		t.Fatalf("expected wrap to last track c1, got %q", current.ID)
	}
	// PlayPrev re-enters the radio path, so the explicit queue is replaced by
	// a fresh seed plus its related tracks.
	waitFor(t, "radio reseed", func() bool { return c.Queue().Len() == 2 })
	got := queueIDs(c.Queue())
	if got[0] != "c1" || got[1] != "d1" {
		t.Errorf("expected queue [c1 d1], got %v", got)
	}
}

func TestTogglePlay(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	el := &fakeElement{}
	c := player.NewController(src, player.WithElement(el))

	// No-op before anything is loaded.
	c.TogglePlay()
	if el.pauses != 0 || el.plays != 0 {
		t.Error("expected toggle to be a no-op with nothing loaded")
	}

	c.PlaySong(context.Background(), rec("a1", "A"), nil, false)
	waitFor(t, "resolution", func() bool { return c.State().Clone().IsPlaying })

	c.TogglePlay()
	if c.State().Clone().IsPlaying {
		t.Error("expected paused after toggle")
	}
	c.TogglePlay()
	if !c.State().Clone().IsPlaying {
		t.Error("expected playing after second toggle")
	}
}

func TestSeekAndVolume(t *testing.T) {
	src := newFakeSource()
	el := &fakeElement{}
	c := player.NewController(src, player.WithElement(el))

	c.Seek(42.5)
	if got := c.State().Clone().CurrentTime; got != 42.5 {
		t.Errorf("expected position 42.5, got %v", got)
	}
	if len(el.seeks) != 1 || el.seeks[0] != 42.5 {
		t.Errorf("expected element seek to 42.5, got %v", el.seeks)
	}

	c.SetVolume(1.4)
	if got := c.State().Clone().Volume; got != 1 {
		t.Errorf("expected clamped volume 1, got %v", got)
	}
	if len(el.volumes) != 1 || el.volumes[0] != 1 {
		t.Errorf("expected element volume 1, got %v", el.volumes)
	}
}

func TestAddToQueueIdempotent(t *testing.T) {
	src := newFakeSource()
	c := player.NewController(src)

	c.AddToQueue(rec("a1", "A"))
	c.AddToQueue(rec("a1", "A"))

	if c.Queue().Len() != 1 {
		t.Errorf("expected 1 queued track, got %d", c.Queue().Len())
	}
}

func TestToggleLikeRoundTrip(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	lib := newFakeLibrary()
	c := player.NewController(src, player.WithLibrary(lib), player.WithUser("u1"))

	c.PlaySong(context.Background(), rec("a1", "A"), nil, false)
	waitFor(t, "resolution", func() bool { return c.State().Clone().IsPlaying })
	time.Sleep(20 * time.Millisecond) // let the like refresh settle

	c.ToggleLike()
	if !c.State().Clone().IsLiked {
		t.Error("expected liked after first toggle")
	}
	waitFor(t, "favorite insert", func() bool {
		liked, _ := lib.IsFavorite("u1", "a1")
		return liked
	})

	c.ToggleLike()
	if c.State().Clone().IsLiked {
		t.Error("expected unliked after second toggle")
	}
	waitFor(t, "favorite delete", func() bool {
		liked, _ := lib.IsFavorite("u1", "a1")
		return !liked
	})
}

func TestToggleLikeUnauthenticatedNoop(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	lib := newFakeLibrary()
	c := player.NewController(src, player.WithLibrary(lib))

	c.PlaySong(context.Background(), rec("a1", "A"), nil, false)
	waitFor(t, "resolution", func() bool { return c.State().Clone().IsPlaying })

	c.ToggleLike()
	time.Sleep(20 * time.Millisecond)
	if liked, _ := lib.IsFavorite("", "a1"); liked {
		t.Error("expected no favorite write without an identity")
	}
	if c.State().Clone().IsLiked {
		t.Error("expected like state unchanged without an identity")
	}
}

func TestHistoryAppendedOnResolution(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	lib := newFakeLibrary()
	c := player.NewController(src, player.WithLibrary(lib), player.WithUser("u1"))

	c.PlaySong(context.Background(), rec("a1", "Song A"), nil, false)

	waitFor(t, "history append", func() bool { return lib.historyLen() == 1 })
	lib.mu.Lock()
	entry := lib.history[0]
	lib.mu.Unlock()
	if entry.UserID != "u1" || entry.VideoID != "a1" || entry.Title != "Song A" {
		t.Errorf("unexpected history entry %+v", entry)
	}
}

func TestOnEndedRepeatRestarts(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	el := &fakeElement{}
	c := player.NewController(src, player.WithElement(el))

	c.PlaySong(context.Background(), rec("a1", "A"), nil, false)
	waitFor(t, "resolution", func() bool { return c.State().Clone().IsPlaying })
	c.SetRepeat(true)
	c.OnTimeUpdate(99)

	c.OnEnded(context.Background())

	snap := c.State().Clone()
	if snap.CurrentTime != 0 || !snap.IsPlaying {
		t.Errorf("expected restart at 0, got time=%v playing=%v", snap.CurrentTime, snap.IsPlaying)
	}
	if len(el.seeks) == 0 || el.seeks[len(el.seeks)-1] != 0 {
		t.Errorf("expected element seek to 0, got %v", el.seeks)
	}
	// Repeat restarts in place without a second resolution.
	if n := src.resolveCount("a1"); n != 1 {
		t.Errorf("expected a single resolution, got %d", n)
	}
}

func TestOnEndedAdvances(t *testing.T) {
	src := newFakeSource()
	src.stream("a1", "https://cdn.example.com/a1")
	src.stream("b1", "https://cdn.example.com/b1")
	c := player.NewController(src)

	override := []streamapi.TrackRecord{rec("a1", "A"), rec("b1", "B")}
	c.PlaySong(context.Background(), rec("a1", "A"), override, true)
	waitFor(t, "resolution", func() bool { return c.State().Clone().IsPlaying })

	c.OnEnded(context.Background())

	if c.Queue().Cursor() != 1 {
		t.Errorf("expected cursor 1 after track end, got %d", c.Queue().Cursor())
	}
	current, _ := c.CurrentTrack()
	if current.ID != "b1" {
		t.Errorf("expected current track b1, got %q", current.ID)
	}
}
