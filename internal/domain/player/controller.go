package player

import (
	"context"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rythmtune/rythmtune-backend/internal/infra/library"
	"github.com/rythmtune/rythmtune-backend/internal/infra/streamapi"
)

// StreamSource resolves track IDs to playable streams and related tracks.
// Satisfied by *streamapi.Client.
type StreamSource interface {
	Resolve(ctx context.Context, trackID string) (*streamapi.StreamInfo, error)
	Related(ctx context.Context, trackID string) []streamapi.TrackRecord
}

// Library is the persistence surface the controller needs for favorites and
// play history. Satisfied by *library.DAO.
type Library interface {
	IsFavorite(userID, videoID string) (bool, error)
	InsertFavorite(fav *library.Favorite) error
	DeleteFavorite(userID, videoID string) error
	AppendHistory(entry *library.HistoryEntry) error
}

// Notifier is told when a state subsystem changed so connected clients can be
// pushed an update. Satisfied by the transport debouncer.
type Notifier interface {
	Trigger(subsystem string)
}

type noopNotifier struct{}

func (noopNotifier) Trigger(string) {}

type noopElement struct{}

func (noopElement) SetSource(string) error  { return nil }
func (noopElement) Play() error             { return nil }
func (noopElement) Pause() error            { return nil }
func (noopElement) SeekTo(float64) error    { return nil }
func (noopElement) SetVolume(float64) error { return nil }

// Controller owns the queue, the current track, and all playback transitions.
// Every asynchronous completion is tagged with the request's target so stale
// responses can be detected and discarded.
type Controller struct {
	source   StreamSource
	lib      Library
	element  Element
	notifier Notifier
	randIntn func(n int) int

	state *State
	queue *Queue

	// mu guards the fields below. Resolution and related-fetch completions
	// re-check these tags before touching any state.
	mu         sync.Mutex
	current    Track
	hasCurrent bool
	userID     string
	generation uint64 // bumped on every wholesale queue replacement
	resolveSeq uint64 // bumped on every new resolution request
}

// Option configures the controller.
type Option func(*Controller)

// WithLibrary attaches the favorites/history store. Without it the
// controller behaves as unauthenticated.
func WithLibrary(lib Library) Option {
	return func(c *Controller) {
		c.lib = lib
	}
}

// WithElement attaches the audio sink.
func WithElement(el Element) Option {
	return func(c *Controller) {
		c.element = el
	}
}

// WithNotifier attaches the client push notifier.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithRandIntn overrides the shuffle random source, for tests.
func WithRandIntn(fn func(n int) int) Option {
	return func(c *Controller) {
		c.randIntn = fn
	}
}

// WithUser sets the initial identity.
func WithUser(userID string) Option {
	return func(c *Controller) {
		c.userID = userID
	}
}

// NewController creates a playback controller around the given stream source.
func NewController(source StreamSource, opts ...Option) *Controller {
	c := &Controller{
		source:   source,
		element:  noopElement{},
		notifier: noopNotifier{},
		randIntn: rand.Intn,
		state:    NewState(),
		queue:    NewQueue(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetNotifier swaps the push notifier. The transport debouncer is attached
// here after construction since it needs the server, which needs the
// controller.
func (c *Controller) SetNotifier(n Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	c.notifier = n
}

// State returns the playback state.
func (c *Controller) State() *State {
	return c.state
}

// Queue returns the playback queue.
func (c *Controller) Queue() *Queue {
	return c.queue
}

// CurrentTrack returns the track being played or resolved, if any.
func (c *Controller) CurrentTrack() (Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.hasCurrent
}

// SetUser switches the active identity and refreshes the like state of the
// current track against it.
func (c *Controller) SetUser(userID string) {
	c.mu.Lock()
	c.userID = userID
	track, has := c.current, c.hasCurrent
	c.mu.Unlock()

	log.Info().Str("userId", userID).Msg("SetUser")
	if has {
		go c.refreshLike(track.ID)
	}
}

// PlaySong starts playback of a track. With explicitPlaylist and a queue
// override, the queue is replaced wholesale and the cursor points at the
// track within it. Otherwise the queue is reseeded to the single track and
// related tracks are fetched to grow it (radio mode). The optimistic track is
// visible immediately; the stream URL is merged in when resolution completes.
func (c *Controller) PlaySong(ctx context.Context, rec streamapi.TrackRecord, queueOverride []streamapi.TrackRecord, explicitPlaylist bool) {
	track := TrackFromRecord(rec)
	if track.ID == "" {
		log.Warn().Msg("PlaySong: track without an ID, ignoring")
		return
	}
	log.Info().Str("trackId", track.ID).Bool("explicitPlaylist", explicitPlaylist).Msg("PlaySong")

	c.mu.Lock()
	c.generation++
	gen := c.generation

	if explicitPlaylist && len(queueOverride) > 0 {
		items := make([]Track, 0, len(queueOverride))
		for _, r := range queueOverride {
			items = append(items, TrackFromRecord(r))
		}
		cursor := -1
		for i, t := range items {
			if t.ID == track.ID {
				cursor = i
				break
			}
		}
		if cursor == -1 {
			// Requested track missing from the provided queue. Insert it so
			// the cursor invariant holds.
			items = append(items, track)
			cursor = len(items) - 1
		}
		c.queue.Replace(items, cursor)
	} else {
		c.queue.Replace([]Track{track}, 0)
		go c.seedRadio(ctx, gen, track.ID)
	}

	seq := c.beginResolveLocked(track)
	c.mu.Unlock()

	c.notifier.Trigger("playlist")
	go c.resolve(ctx, seq, track)
	go c.refreshLike(track.ID)
}

// PlayNext advances to the next queue position. The cursor moves before
// resolution completes so navigation feels immediate. Approaching the tail
// also triggers queue growth seeded from the last queued track.
func (c *Controller) PlayNext(ctx context.Context) {
	c.mu.Lock()
	n := c.queue.Len()
	if n == 0 {
		c.mu.Unlock()
		return
	}

	cursor := c.queue.Cursor()
	var next int
	if c.state.Clone().IsShuffle {
		// May reselect the current track. Accepted behavior.
		next = c.randIntn(n)
	} else {
		next = cursor + 1
		if next >= n {
			next = 0
		}
	}

	if cursor+1 >= n-1 {
		if last, ok := c.queue.Last(); ok {
			go c.growQueue(ctx, c.generation, last.ID)
		}
	}

	track, ok := c.queue.At(next)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.queue.SetCursor(next)
	seq := c.beginResolveLocked(track)
	c.mu.Unlock()

	log.Info().Str("trackId", track.ID).Int("cursor", next).Msg("PlayNext")
	c.notifier.Trigger("playlist")
	go c.resolve(ctx, seq, track)
	go c.refreshLike(track.ID)
}

// PlayPrev steps back one queue position, wrapping to the last index from the
// front. It re-enters through PlaySong without a queue override, so the queue
// resets to a fresh radio seed around the previous track rather than being
// preserved the way PlayNext preserves it.
func (c *Controller) PlayPrev(ctx context.Context) {
	c.mu.Lock()
	n := c.queue.Len()
	if n == 0 {
		c.mu.Unlock()
		return
	}
	prev := c.queue.Cursor() - 1
	if prev < 0 {
		prev = n - 1
	}
	track, ok := c.queue.At(prev)
	c.mu.Unlock()
	if !ok {
		return
	}

	log.Info().Str("trackId", track.ID).Int("cursor", prev).Msg("PlayPrev")
	c.PlaySong(ctx, track.Record(), nil, false)
}

// TogglePlay pauses or resumes the loaded media. No-op while nothing
// playable is loaded.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	loaded := c.hasCurrent && c.current.StreamURL != ""
	c.mu.Unlock()
	if !loaded {
		return
	}

	if c.state.Clone().IsPlaying {
		if err := c.element.Pause(); err != nil {
			log.Warn().Err(err).Msg("pause failed")
		}
		c.state.SetPlaying(false)
	} else {
		if err := c.element.Play(); err != nil {
			log.Warn().Err(err).Msg("play failed")
		}
		c.state.SetPlaying(true)
	}
	c.notifier.Trigger("player")
}

// Seek jumps to an absolute position in seconds. The element clamps to its
// own bounds.
func (c *Controller) Seek(seconds float64) {
	log.Info().Float64("position", seconds).Msg("Seek")
	c.state.UpdateTime(seconds)
	if err := c.element.SeekTo(seconds); err != nil {
		log.Warn().Err(err).Msg("seek failed")
	}
	c.notifier.Trigger("player")
}

// SetVolume sets the output volume (0.0 - 1.0).
func (c *Controller) SetVolume(v float64) {
	c.state.SetVolume(v)
	if err := c.element.SetVolume(c.state.Clone().Volume); err != nil {
		log.Warn().Err(err).Msg("set volume failed")
	}
	c.notifier.Trigger("player")
}

// SetShuffle sets shuffle mode.
func (c *Controller) SetShuffle(on bool) {
	log.Info().Bool("shuffle", on).Msg("SetShuffle")
	c.state.SetShuffle(on)
	c.notifier.Trigger("player")
}

// SetRepeat sets repeat mode.
func (c *Controller) SetRepeat(on bool) {
	log.Info().Bool("repeat", on).Msg("SetRepeat")
	c.state.SetRepeat(on)
	c.notifier.Trigger("player")
}

// AddToQueue appends a track unless its ID is already queued.
func (c *Controller) AddToQueue(rec streamapi.TrackRecord) {
	track := TrackFromRecord(rec)
	if track.ID == "" {
		return
	}
	if c.queue.Add(track) {
		log.Info().Str("trackId", track.ID).Msg("AddToQueue")
		c.notifier.Trigger("playlist")
	}
}

// ToggleLike flips the favorite status of the current track for the current
// identity. The flag update is optimistic; the store write runs in the
// background and a failure is logged, not rolled back.
func (c *Controller) ToggleLike() {
	c.mu.Lock()
	userID := c.userID
	track, has := c.current, c.hasCurrent
	c.mu.Unlock()
	if c.lib == nil || userID == "" || !has {
		return
	}

	liked, err := c.lib.IsFavorite(userID, track.ID)
	if err != nil {
		log.Error().Err(err).Str("trackId", track.ID).Msg("favorite lookup failed")
		return
	}

	c.state.SetLiked(!liked)
	c.notifier.Trigger("player")

	go func() {
		if liked {
			if err := c.lib.DeleteFavorite(userID, track.ID); err != nil {
				log.Error().Err(err).Str("trackId", track.ID).Msg("unfavorite failed")
			}
			return
		}
		fav := &library.Favorite{
			UserID:    userID,
			VideoID:   track.ID,
			Title:     track.Title,
			Artist:    track.ArtistName,
			Thumbnail: track.ThumbnailURL,
		}
		if err := c.lib.InsertFavorite(fav); err != nil {
			log.Error().Err(err).Str("trackId", track.ID).Msg("favorite failed")
		}
	}()
}

// OnTimeUpdate records playback progress reported by the element.
func (c *Controller) OnTimeUpdate(seconds float64) {
	c.state.UpdateTime(seconds)
	c.notifier.Trigger("player")
}

// OnLoadedMetadata records the duration reported by the element once media
// metadata is available.
func (c *Controller) OnLoadedMetadata(duration float64) {
	c.state.UpdateDuration(duration)
	c.notifier.Trigger("player")
}

// OnEnded handles natural end of track: restart in place when repeat is on,
// otherwise advance.
func (c *Controller) OnEnded(ctx context.Context) {
	if c.state.Clone().IsRepeat {
		c.state.RestartTrack()
		if err := c.element.SeekTo(0); err != nil {
			log.Warn().Err(err).Msg("repeat seek failed")
		}
		if err := c.element.Play(); err != nil {
			log.Warn().Err(err).Msg("repeat play failed")
		}
		c.notifier.Trigger("player")
		return
	}
	c.PlayNext(ctx)
}

// beginResolveLocked marks track as current, tags a new resolution sequence,
// and puts the state into loading. Caller holds c.mu.
func (c *Controller) beginResolveLocked(track Track) uint64 {
	c.current = track
	c.hasCurrent = true
	c.resolveSeq++
	c.state.StartResolving()
	c.notifier.Trigger("player")
	return c.resolveSeq
}

// resolve fetches the stream URL for track and merges the result in, unless
// a newer request has superseded this one in the meantime.
func (c *Controller) resolve(ctx context.Context, seq uint64, track Track) {
	info, err := c.source.Resolve(ctx, track.ID)

	c.mu.Lock()
	if seq != c.resolveSeq || !c.hasCurrent || c.current.ID != track.ID {
		c.mu.Unlock()
		log.Debug().Str("trackId", track.ID).Msg("discarding stale resolution")
		return
	}

	if err != nil {
		c.state.FinishResolving(false, 0)
		c.mu.Unlock()
		log.Warn().Err(err).Str("trackId", track.ID).Msg("stream resolution failed")
		c.notifier.Trigger("player")
		return
	}

	c.current.mergeStream(info)
	merged := c.current
	userID := c.userID
	if i := c.queue.IndexOf(merged.ID); i != -1 {
		c.queue.UpdateAt(i, merged)
	}
	if err := c.element.SetSource(merged.StreamURL); err != nil {
		log.Warn().Err(err).Str("trackId", merged.ID).Msg("set source failed")
	}
	if err := c.element.Play(); err != nil {
		log.Warn().Err(err).Str("trackId", merged.ID).Msg("play failed")
	}
	c.state.FinishResolving(true, merged.DurationSeconds)
	c.mu.Unlock()

	c.notifier.Trigger("player")
	c.notifier.Trigger("playlist")

	if c.lib != nil && userID != "" {
		go func() {
			entry := &library.HistoryEntry{
				UserID:    userID,
				VideoID:   merged.ID,
				Title:     merged.Title,
				Artist:    merged.ArtistName,
				Thumbnail: merged.ThumbnailURL,
			}
			if err := c.lib.AppendHistory(entry); err != nil {
				log.Error().Err(err).Str("trackId", merged.ID).Msg("history append failed")
			}
		}()
	}
}

// seedRadio fetches related tracks for a fresh radio queue and appends up to
// RadioSeedLimit of them. The append is dropped if the queue was replaced
// while the fetch was in flight.
func (c *Controller) seedRadio(ctx context.Context, gen uint64, seedID string) {
	related := c.source.Related(ctx, seedID)
	if len(related) == 0 {
		return
	}

	tracks := make([]Track, 0, len(related))
	for _, rec := range related {
		if rec.TrackID() == seedID || rec.TrackID() == "" {
			continue
		}
		tracks = append(tracks, TrackFromRecord(rec))
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Debug().Str("seedId", seedID).Msg("discarding stale radio seed")
		return
	}
	added := c.queue.AppendUnique(tracks, RadioSeedLimit)
	c.mu.Unlock()

	if added > 0 {
		log.Debug().Str("seedId", seedID).Int("added", added).Msg("radio queue seeded")
		c.notifier.Trigger("playlist")
	}
}

// growQueue extends the queue near its tail with up to RadioGrowLimit tracks
// related to the last queued item, de-duplicated against whatever the queue
// holds by the time the fetch returns.
func (c *Controller) growQueue(ctx context.Context, gen uint64, seedID string) {
	related := c.source.Related(ctx, seedID)
	if len(related) == 0 {
		return
	}

	tracks := make([]Track, 0, len(related))
	for _, rec := range related {
		if rec.TrackID() == "" {
			continue
		}
		tracks = append(tracks, TrackFromRecord(rec))
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Debug().Str("seedId", seedID).Msg("discarding stale queue growth")
		return
	}
	added := c.queue.AppendUnique(tracks, RadioGrowLimit)
	c.mu.Unlock()

	if added > 0 {
		log.Debug().Str("seedId", seedID).Int("added", added).Msg("radio queue grown")
		c.notifier.Trigger("playlist")
	}
}

// refreshLike re-derives the like flag for the given track against the
// current identity, discarding the result if the current track moved on.
func (c *Controller) refreshLike(trackID string) {
	c.mu.Lock()
	userID := c.userID
	c.mu.Unlock()

	if c.lib == nil || userID == "" {
		c.state.SetLiked(false)
		return
	}

	liked, err := c.lib.IsFavorite(userID, trackID)
	if err != nil {
		log.Error().Err(err).Str("trackId", trackID).Msg("favorite lookup failed")
		return
	}

	c.mu.Lock()
	stale := !c.hasCurrent || c.current.ID != trackID
	c.mu.Unlock()
	if stale {
		return
	}
	c.state.SetLiked(liked)
	c.notifier.Trigger("player")
}
