package playback

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	beepwav "github.com/faiface/beep/wav"
	"github.com/go-audio/wav"
)

const speakerBufferLen = time.Second / 10

// BeepSource drives the machine's audio output through the beep speaker. It
// decodes wav streams, reports position once a second while playing and
// emits an ended event when the stream runs out. Remote locators are
// downloaded into the media cache directory on first load.
//
// The finished callback fires under the speaker mutex, so s.mu must never be
// held across a speaker call and the callback must stay lock-free.
type BeepSource struct {
	mediaDir string
	client   *http.Client

	events chan SourceEvent
	done   chan struct{}

	speakerOnce sync.Once
	sampleRate  beep.SampleRate
	initErr     error

	generation atomic.Int64

	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	duration time.Duration
}

func NewBeepSource(mediaDir string, client *http.Client) *BeepSource {
	if client == nil {
		client = &http.Client{}
	}
	s := &BeepSource{
		mediaDir: mediaDir,
		client:   client,
		events:   make(chan SourceEvent, 16),
		done:     make(chan struct{}),
	}
	go s.tick()
	return s
}

func (s *BeepSource) Load(locator string) error {
	path, err := s.resolve(locator)
	if err != nil {
		return err
	}

	duration, err := probeDuration(path)
	if err != nil {
		return fmt.Errorf("failed to read audio metadata: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}

	streamer, format, err := beepwav.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode audio stream: %w", err)
	}

	s.speakerOnce.Do(func() {
		s.sampleRate = format.SampleRate
		s.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(speakerBufferLen))
	})
	if s.initErr != nil {
		streamer.Close()
		return fmt.Errorf("failed to initialise audio output: %w", s.initErr)
	}

	// Bumping the generation first makes any in-flight callback from the
	// outgoing stream stale before it can be observed.
	generation := s.generation.Add(1)
	ctrl := &beep.Ctrl{
		Streamer: beep.Seq(resampled(streamer, format.SampleRate, s.sampleRate), beep.Callback(func() {
			s.finished(generation)
		})),
		Paused: true,
	}

	s.mu.Lock()
	old := s.streamer
	s.streamer = streamer
	s.format = format
	s.duration = duration
	s.ctrl = ctrl
	s.mu.Unlock()

	speaker.Clear()
	if old != nil {
		old.Close()
	}

	speaker.Play(ctrl)
	s.emit(SourceEvent{Kind: EventDurationKnown, Duration: duration})

	return nil
}

// resampled adapts streams whose sample rate differs from the one the
// speaker was initialised with.
func resampled(streamer beep.StreamSeekCloser, from, to beep.SampleRate) beep.Streamer {
	if from == to {
		return streamer
	}
	return beep.Resample(4, from, to, streamer)
}

func (s *BeepSource) Play() {
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()
	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Paused = false
	speaker.Unlock()
}

func (s *BeepSource) Pause() {
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()
	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()
}

func (s *BeepSource) SetPosition(position time.Duration) {
	s.mu.Lock()
	streamer := s.streamer
	format := s.format
	s.mu.Unlock()
	if streamer == nil {
		return
	}
	speaker.Lock()
	sample := format.SampleRate.N(position)
	if sample > streamer.Len() {
		sample = streamer.Len()
	}
	if err := streamer.Seek(sample); err != nil {
		s.emit(SourceEvent{Kind: EventLoadFailed, Err: err})
	}
	speaker.Unlock()
}

func (s *BeepSource) Position() time.Duration {
	s.mu.Lock()
	streamer := s.streamer
	format := s.format
	s.mu.Unlock()
	if streamer == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return format.SampleRate.D(streamer.Position())
}

func (s *BeepSource) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *BeepSource) Events() <-chan SourceEvent {
	return s.events
}

func (s *BeepSource) Close() error {
	close(s.done)
	s.mu.Lock()
	streamer := s.streamer
	s.streamer = nil
	s.ctrl = nil
	s.mu.Unlock()
	if streamer != nil {
		speaker.Clear()
		return streamer.Close()
	}
	return nil
}

// tick emits position events once a second while output is running.
func (s *BeepSource) tick() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			streamer := s.streamer
			format := s.format
			ctrl := s.ctrl
			s.mu.Unlock()
			if streamer == nil || ctrl == nil {
				continue
			}
			speaker.Lock()
			paused := ctrl.Paused
			position := format.SampleRate.D(streamer.Position())
			speaker.Unlock()
			if paused {
				continue
			}
			s.emit(SourceEvent{Kind: EventPositionChanged, Position: position})
		}
	}
}

// finished fires from the speaker goroutine, under the speaker mutex. It must
// not touch s.mu: tick and Load acquire the speaker mutex while other
// goroutines hold s.mu, so taking s.mu here would invert the lock order. The
// generation check drops callbacks belonging to a replaced stream.
func (s *BeepSource) finished(generation int64) {
	if generation != s.generation.Load() {
		return
	}
	s.emit(SourceEvent{Kind: EventEnded})
}

func (s *BeepSource) emit(ev SourceEvent) {
	select {
	case s.events <- ev:
	default:
		// A slow consumer loses position ticks, never correctness
	}
}

// resolve maps a locator onto a local file, downloading remote tracks into
// the media cache on first use.
func (s *BeepSource) resolve(locator string) (string, error) {
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		return locator, nil
	}

	cached := filepath.Join(s.mediaDir, fmt.Sprintf("track.%d.wav", xxhash.Sum64String(locator)))
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	res, err := s.client.Get(locator)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received %d status code fetching audio from %s", res.StatusCode, locator)
	}

	f, err := os.Create(cached)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, res.Body); err != nil {
		os.Remove(cached)
		return "", err
	}

	return cached, nil
}

// probeDuration reads just the wav header so the duration is known before
// decoding starts.
func probeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid wav file", path)
	}
	return decoder.Duration()
}
