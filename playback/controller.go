package playback

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/r3labs/sse/v2"

	"github.com/seedlight/beacon/events"
)

// Controller is the single source of truth for "what is playing". It owns
// the one Source, serializes every control operation and pushes a fresh
// Snapshot to the SSE stream after each state change. There is exactly one
// Controller per process, constructed in main and injected everywhere a
// player surface needs it.
type Controller struct {
	source   Source
	recorder Recorder

	mu        sync.RWMutex
	current   *Item
	playing   bool
	ended     bool
	position  time.Duration
	duration  time.Duration
	playlist  []Item
	lastError string
	startedAt time.Time
}

func NewController(source Source, recorder Recorder) *Controller {
	c := &Controller{
		source:   source,
		recorder: recorder,
	}
	go c.consumeEvents()
	return c
}

// Play loads and starts an item. Playing the current item again resumes it
// without resetting the position; anything else replaces the loaded stream
// and starts from zero. A drained stream can't be resumed, so playing the
// current item after it ended reloads it from the start instead.
func (c *Controller) Play(item Item) {
	c.mu.Lock()

	if c.current != nil && c.current.ID == item.ID && !c.ended {
		c.source.Play()
		c.playing = true
		c.lastError = ""
		c.mu.Unlock()
		c.broadcast()
		return
	}

	// Switching away from an unfinished item still counts as a listen
	c.recordLocked(false)

	if err := c.source.Load(item.Source); err != nil {
		slog.Error("Failed to load playback source",
			slog.String("item", item.Title),
			slog.String("stack", err.Error()),
		)
		c.current = nil
		c.playing = false
		c.ended = false
		c.position = 0
		c.duration = 0
		c.lastError = err.Error()
		c.mu.Unlock()
		c.broadcast()
		return
	}

	loaded := item
	c.current = &loaded
	c.playing = true
	c.ended = false
	c.position = 0
	c.duration = 0
	c.lastError = ""
	c.startedAt = time.Now()
	c.source.Play()
	c.mu.Unlock()
	c.broadcast()
}

// Pause stops output without discarding position. Calling it twice, or with
// nothing loaded, is a no-op.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.current == nil || !c.playing {
		c.mu.Unlock()
		return
	}
	c.source.Pause()
	c.playing = false
	c.mu.Unlock()
	c.broadcast()
}

// Seek jumps to an absolute position, clamped to [0, duration]. While the
// duration is still unknown only the lower bound is clamped; the upper clamp
// applies once the metadata event lands.
func (c *Controller) Seek(position time.Duration) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	c.seekLocked(position)
	c.mu.Unlock()
	c.broadcast()
}

func (c *Controller) seekLocked(position time.Duration) {
	if position < 0 {
		position = 0
	}
	if c.duration > 0 && position > c.duration {
		position = c.duration
	}
	c.source.SetPosition(position)
	c.position = position
}

func (c *Controller) SkipForward() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	c.seekLocked(c.position + SkipInterval)
	c.mu.Unlock()
	c.broadcast()
}

func (c *Controller) SkipBackward() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	c.seekLocked(c.position - SkipInterval)
	c.mu.Unlock()
	c.broadcast()
}

// PlayNext advances to the item after the current one in the playlist,
// wrapping around at the end. No-op if the playlist is empty or the current
// item isn't in it.
func (c *Controller) PlayNext() {
	if next, ok := c.neighbour(1); ok {
		c.Play(next)
	}
}

// PlayPrevious is PlayNext in reverse, wrapping from the first item to the
// last.
func (c *Controller) PlayPrevious() {
	if prev, ok := c.neighbour(-1); ok {
		c.Play(prev)
	}
}

func (c *Controller) neighbour(offset int) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.playlist) == 0 || c.current == nil {
		return Item{}, false
	}
	for i, item := range c.playlist {
		if item.ID == c.current.ID {
			idx := (i + offset + len(c.playlist)) % len(c.playlist)
			return c.playlist[idx], true
		}
	}
	return Item{}, false
}

// SetPlaylist replaces the ordered sequence used to resolve next/previous.
func (c *Controller) SetPlaylist(items []Item) {
	c.mu.Lock()
	c.playlist = make([]Item, len(items))
	copy(c.playlist, items)
	c.mu.Unlock()
	c.broadcast()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:     StatusIdle,
		Playing:    c.playing,
		PositionMs: c.position.Milliseconds(),
		DurationMs: c.duration.Milliseconds(),
		LastError:  c.lastError,
		UpdatedAt:  time.Now(),
	}
	if c.current != nil {
		item := *c.current
		snap.Item = &item
		if c.playing {
			snap.Status = StatusPlaying
		} else {
			snap.Status = StatusPaused
		}
	}
	if len(c.playlist) > 0 {
		snap.Playlist = make([]Item, len(c.playlist))
		copy(snap.Playlist, c.playlist)
	}
	return snap
}

// consumeEvents is the Controller's subscription to the audio primitive for
// the lifetime of the process.
func (c *Controller) consumeEvents() {
	for ev := range c.source.Events() {
		switch ev.Kind {
		case EventPositionChanged:
			c.mu.Lock()
			if c.current == nil {
				c.mu.Unlock()
				continue
			}
			c.position = ev.Position
			if c.duration > 0 && c.position > c.duration {
				c.position = c.duration
			}
			c.mu.Unlock()
			c.broadcast()
		case EventDurationKnown:
			c.mu.Lock()
			if c.current == nil {
				c.mu.Unlock()
				continue
			}
			c.duration = ev.Duration
			if c.position > c.duration {
				c.position = c.duration
			}
			c.mu.Unlock()
			c.broadcast()
		case EventEnded:
			c.mu.Lock()
			if c.current == nil {
				c.mu.Unlock()
				continue
			}
			if c.duration > 0 {
				c.position = c.duration
			}
			c.playing = false
			c.ended = true
			c.recordLocked(true)
			c.mu.Unlock()
			c.broadcast()
			c.PlayNext()
		case EventLoadFailed:
			c.mu.Lock()
			c.current = nil
			c.playing = false
			c.ended = false
			c.position = 0
			c.duration = 0
			if ev.Err != nil {
				c.lastError = ev.Err.Error()
			}
			c.mu.Unlock()
			c.broadcast()
		}
	}
}

// recordLocked flushes the current item to the play history. Must be called
// with the write lock held.
func (c *Controller) recordLocked(completed bool) {
	if c.recorder == nil || c.current == nil || c.startedAt.IsZero() {
		return
	}
	entry := HistoryEntry{
		ItemID:    c.current.ID,
		Title:     c.current.Title,
		Source:    c.current.Source,
		StartedAt: c.startedAt,
		EndedAt:   time.Now(),
		ElapsedMs: int(c.position.Milliseconds()),
		Completed: completed,
	}
	if err := c.recorder.RecordPlay(entry); err != nil {
		slog.Error("Failed to record play history",
			slog.String("item_id", entry.ItemID),
			slog.String("stack", err.Error()),
		)
	}
	c.startedAt = time.Time{}
}

func (c *Controller) broadcast() {
	if events.Server == nil {
		return
	}
	// Just enough for clients to rehydrate themselves without a refetch
	jsonState, _ := json.Marshal(c.Snapshot())
	events.Server.Publish(events.StreamPlayback, &sse.Event{Data: jsonState})
}
