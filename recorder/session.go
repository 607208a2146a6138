// Package recorder owns the recording session state machine: device
// acquisition, sample buffering, the elapsed-time tick, the level meter and
// the stop/cancel teardown barrier. It produces an encoded capture and
// nothing else; transcription is someone else's job.
package recorder

import (
	"errors"
	"sync"
	"time"

	"murmur/audio"
	"murmur/encoder"
)

// State is the externally visible phase of a session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateCompleted
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	}
	return "unknown"
}

// EventType identifies a session notification.
type EventType int

const (
	// EventStarted fires once when capture begins.
	EventStarted EventType = iota
	// EventTick fires every second with the updated elapsed count.
	EventTick
	// EventLevel fires with each level-meter refresh.
	EventLevel
	// EventStopped fires when the session returns to idle with no output:
	// cancel, empty capture, or a too-short capture.
	EventStopped
	// EventCompleted fires when a stop produced encoded audio.
	EventCompleted
)

// Event is a UI notification. Callbacks run outside the session lock, so a
// handler may call back into the session.
type Event struct {
	Type           EventType
	ElapsedSeconds int
	LevelPercent   int
}

// Config carries the fixed parameters of a session.
type Config struct {
	Audio  audio.Context
	Device *audio.DeviceInfo // nil means system default

	SampleRate  int           // defaults to encoder.SampleRate
	MinDuration time.Duration // captures shorter than this are rejected
	MaxDuration time.Duration // auto-stop threshold; 0 disables

	Notify     func(Event)                  // optional
	OnAutoStop func(data []byte, err error) // optional; receives the max-duration capture
}

// Session drives one microphone at a time. The zero value is not usable;
// construct with New. A Session is reusable: after Stop or Cancel it can
// Start again.
//
// Three producers run while recording: the capture callback appending
// samples, the level poll, and the elapsed tick. Stop and Cancel claim the
// state transition under the lock first, so halting the producers and
// releasing the device happens exactly once no matter how the calls race.
type Session struct {
	cfg      Config
	analyser *audio.Analyser

	// Producer intervals. Defaults are set in New; shortened by tests.
	tickEvery  time.Duration
	levelEvery time.Duration

	mu        sync.Mutex
	state     State
	startedAt time.Time
	elapsed   int // whole seconds, tick-driven
	level     int
	buffer    *SampleBuffer
	capture   audio.CaptureDevice
	stopCh    chan struct{}
	// producers belongs to one recording. A fresh group per Start keeps a
	// teardown still in flight from observing the next recording's
	// goroutines.
	producers *sync.WaitGroup
}

func New(cfg Config) *Session {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = encoder.SampleRate
	}
	return &Session{
		cfg:        cfg,
		analyser:   audio.NewAnalyser(),
		tickEvery:  time.Second,
		levelEvery: 100 * time.Millisecond,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed reports the whole seconds counted so far in the current recording.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Level reports the most recent meter value, 0-100.
func (s *Session) Level() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Start opens the configured device and begins capturing. Valid from idle,
// completed or error; a start while a recording or teardown is in flight
// returns ErrAlreadyRecording. Device failures land the session in
// StateError with a classified CaptureError; Cancel resets that.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRecording || s.state == StateProcessing {
		return ErrAlreadyRecording
	}

	buf := NewSampleBuffer(s.cfg.SampleRate)
	s.analyser.Reset()

	capture, err := s.cfg.Audio.NewCapture(s.cfg.Device, audio.CaptureConfig{
		SampleRate: uint32(s.cfg.SampleRate),
		Channels:   1,
	})
	if err != nil {
		s.state = StateError
		return classifyOpenError(err)
	}
	analyser := s.analyser
	capture.SetCallback(func(samples []float32) {
		buf.Append(samples)
		analyser.Push(samples)
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		s.state = StateError
		return classifyOpenError(err)
	}

	s.buffer = buf
	s.capture = capture
	s.startedAt = time.Now()
	s.elapsed = 0
	s.level = 0
	s.stopCh = make(chan struct{})
	s.producers = &sync.WaitGroup{}
	s.state = StateRecording

	s.producers.Add(2)
	go s.tickLoop(s.stopCh, s.producers)
	go s.levelLoop(s.stopCh, s.producers)

	s.notify(Event{Type: EventStarted})
	return nil
}

// Stop ends the recording and returns the encoded capture. An empty capture
// returns (nil, nil) and the session goes back to idle. A capture shorter
// than MinDuration is discarded and reported as a too-short CaptureError.
// When no recording is active it returns ErrNotRecording and touches
// nothing, so racing stop calls release the device only once.
func (s *Session) Stop() ([]byte, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	s.state = StateProcessing
	stopCh := s.stopCh
	capture := s.capture
	buf := s.buffer
	producers := s.producers
	elapsed := s.elapsed
	s.capture = nil
	s.buffer = nil
	s.mu.Unlock()

	// Producers first, then the device. The callback may fire until the
	// device stops; the buffer drops appends once taken or closed.
	close(stopCh)
	producers.Wait()
	releaseCapture(capture)

	if buf.Len() == 0 {
		buf.Close()
		if s.settleIdle() {
			s.notify(Event{Type: EventStopped})
		}
		return nil, nil
	}
	if s.cfg.MinDuration > 0 && elapsed < int(s.cfg.MinDuration/time.Second) {
		buf.Close()
		if s.settleIdle() {
			s.notify(Event{Type: EventStopped, ElapsedSeconds: elapsed})
		}
		return nil, &CaptureError{Kind: CaptureTooShort}
	}

	samples := buf.Take()
	if samples == nil {
		s.settleIdle()
		return nil, &CaptureError{Kind: CaptureEncodeFailed}
	}
	data := encoder.EncodeWAV(samples, buf.SampleRate())

	s.mu.Lock()
	if s.state != StateProcessing {
		// Cancelled while encoding; the result is discarded.
		s.mu.Unlock()
		return nil, nil
	}
	s.state = StateCompleted
	s.level = 0
	s.mu.Unlock()
	s.notify(Event{Type: EventCompleted, ElapsedSeconds: elapsed})
	return data, nil
}

// Cancel discards the current recording, releases the device and returns the
// session to idle. It also resets a completed or errored session. Safe to
// call from any state, any number of times.
func (s *Session) Cancel() {
	s.mu.Lock()
	switch s.state {
	case StateRecording:
		stopCh := s.stopCh
		capture := s.capture
		buf := s.buffer
		producers := s.producers
		s.capture = nil
		s.buffer = nil
		s.state = StateIdle
		s.elapsed = 0
		s.level = 0
		s.mu.Unlock()

		close(stopCh)
		producers.Wait()
		releaseCapture(capture)
		buf.Close()
		s.notify(Event{Type: EventStopped})
	case StateProcessing:
		// A stop owns the teardown; flipping the state makes it drop
		// its result.
		s.state = StateIdle
		s.elapsed = 0
		s.level = 0
		s.mu.Unlock()
		s.notify(Event{Type: EventStopped})
	case StateCompleted, StateError:
		s.state = StateIdle
		s.elapsed = 0
		s.level = 0
		s.mu.Unlock()
	default:
		s.mu.Unlock()
	}
}

// settleIdle finishes a stop that produced no output. It only applies while
// the stop still owns the transition; a cancel that raced in already moved
// the state and notified.
func (s *Session) settleIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProcessing {
		return false
	}
	s.state = StateIdle
	s.elapsed = 0
	s.level = 0
	return true
}

func (s *Session) notify(e Event) {
	if s.cfg.Notify != nil {
		s.cfg.Notify(e)
	}
}

// tickLoop counts elapsed seconds and triggers the auto-stop. It exits on
// the stop channel or after firing the auto-stop itself.
func (s *Session) tickLoop(stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()
	maxTicks := 0
	if s.cfg.MaxDuration > 0 {
		maxTicks = int(s.cfg.MaxDuration / time.Second)
	}
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateRecording {
				s.mu.Unlock()
				continue
			}
			s.elapsed++
			elapsed := s.elapsed
			s.mu.Unlock()
			s.notify(Event{Type: EventTick, ElapsedSeconds: elapsed})
			if maxTicks > 0 && elapsed >= maxTicks {
				// Stop waits for this goroutine, so it must run
				// elsewhere.
				go s.autoStop()
				return
			}
		}
	}
}

func (s *Session) autoStop() {
	data, err := s.Stop()
	if errors.Is(err, ErrNotRecording) {
		// A manual stop or cancel won the race and handles delivery.
		return
	}
	if s.cfg.OnAutoStop != nil {
		s.cfg.OnAutoStop(data, err)
	}
}

// levelLoop refreshes the meter from the analyser while recording.
func (s *Session) levelLoop(stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(s.levelEvery)
	defer ticker.Stop()
	bins := make([]byte, s.analyser.BinCount())
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.analyser.ByteFrequencyData(bins)
			pct := levelPercent(bins)
			s.mu.Lock()
			if s.state != StateRecording {
				s.mu.Unlock()
				continue
			}
			s.level = pct
			s.mu.Unlock()
			s.notify(Event{Type: EventLevel, LevelPercent: pct})
		}
	}
}

func releaseCapture(c audio.CaptureDevice) {
	c.Stop()
	c.ClearCallback()
	c.Close()
}
