package playback

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// SkipInterval is how far the skip controls jump, matching the 15 second
// buttons rendered on every player surface.
const SkipInterval = 15 * time.Second

// Item identifies a playable audio track. Immutable once handed to the
// Controller; owned by whichever listing supplied it.
type Item struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

type EventKind string

const (
	EventPositionChanged EventKind = "position_changed"
	EventDurationKnown   EventKind = "duration_known"
	EventEnded           EventKind = "ended"
	EventLoadFailed      EventKind = "load_failed"
)

// SourceEvent is one asynchronous notification from the audio primitive.
type SourceEvent struct {
	Kind     EventKind
	Position time.Duration
	Duration time.Duration
	Err      error
}

// Source is the single underlying audio output primitive. Exactly one Source
// exists per process and it is exclusively owned by the Controller, so at
// most one sound plays at a time.
//
// Load replaces any previous stream. Implementations must not deliver events
// belonging to a replaced stream after Load returns; switching items is the
// only cancellation mechanism.
type Source interface {
	Load(locator string) error
	Play()
	Pause()
	SetPosition(position time.Duration)
	Position() time.Duration
	Duration() time.Duration
	Events() <-chan SourceEvent
	Close() error
}

// Snapshot is the full playback state as shown to clients.
type Snapshot struct {
	Item       *Item     `json:"item"`
	Status     Status    `json:"status"`
	Playing    bool      `json:"playing"`
	PositionMs int64     `json:"position_ms"`
	DurationMs int64     `json:"duration_ms"`
	Playlist   []Item    `json:"playlist,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HistoryEntry records one finished (or abandoned) listen.
type HistoryEntry struct {
	ID        int       `db:"id" json:"-"`
	ItemID    string    `db:"item_id" json:"item_id"`
	Title     string    `db:"title" json:"title"`
	Source    string    `db:"source" json:"source"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
	EndedAt   time.Time `db:"ended_at" json:"ended_at"`
	ElapsedMs int       `db:"elapsed_ms" json:"elapsed_ms"`
	Completed bool      `db:"completed" json:"completed"`
}

// Recorder persists history entries. The sqlite store implements this.
type Recorder interface {
	RecordPlay(entry HistoryEntry) error
}

// GenerateItemID builds a deterministic id for a track so the same episode
// resolves to the same id no matter which listing supplied it.
func GenerateItemID(title, source string) string {
	return fmt.Sprintf("track:%d", xxhash.Sum64String(fmt.Sprintf("%s-%s", title, source)))
}
