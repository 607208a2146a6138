package hotkey

import (
	"sync"
	"time"
)

// Hybrid turns one key combination into both interaction styles. A short
// tap toggles recording on until the next tap; holding the combo past the
// threshold records for exactly as long as the key stays down.
type Hybrid struct {
	start chan struct{}
	stop  chan struct{}

	mu     sync.Mutex
	toggle bool
}

// NewHybrid watches hk and emits start/stop signals. holdThreshold decides
// whether a press was a tap or a hold.
func NewHybrid(hk Hotkey, holdThreshold time.Duration) *Hybrid {
	h := &Hybrid{
		start: make(chan struct{}, 1),
		stop:  make(chan struct{}, 1),
	}
	go h.run(hk, holdThreshold)
	return h
}

// Start signals that a recording should begin.
func (h *Hybrid) Start() <-chan struct{} { return h.start }

// Stop signals that the current recording should end, for taps and holds
// alike.
func (h *Hybrid) Stop() <-chan struct{} { return h.stop }

// IsToggle reports how the current recording was started: true for a tap,
// false for a hold.
func (h *Hybrid) IsToggle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.toggle
}

func (h *Hybrid) setToggle(v bool) {
	h.mu.Lock()
	h.toggle = v
	h.mu.Unlock()
}

func (h *Hybrid) run(hk Hotkey, holdThreshold time.Duration) {
	for {
		<-hk.Keydown()
		h.setToggle(false)
		h.signal(h.start)

		timer := time.NewTimer(holdThreshold)
		select {
		case <-timer.C:
			// held past the threshold: stop when the key comes up
			<-hk.Keyup()
			h.signal(h.stop)
		case <-hk.Keyup():
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			// tap: stays on until the next press and release
			h.setToggle(true)
			<-hk.Keydown()
			<-hk.Keyup()
			h.signal(h.stop)
		}
	}
}

func (h *Hybrid) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
