package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/artnetfx/internal/dmx"
)

var errNoChannel = errors.New("session: no channel")

// Stats describes the render worker since the last Start.
type Stats struct {
	Frames   uint64        `json:"frames"`
	Dropped  uint64        `json:"dropped"`
	MinDelta time.Duration `json:"min_delta"`
	MaxDelta time.Duration `json:"max_delta"`
}

func (s *Session) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *Session) resetStats() {
	s.statsMu.Lock()
	s.stats = Stats{}
	s.statsMu.Unlock()
}

// run emits one frame per period. A timer parks the goroutine until the
// next frame is due; on wake the clock is re-read and the frame goes out
// only once a full period has passed since the previous one.
func (s *Session) run(ctx context.Context, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(s.period)
	defer timer.Stop()
	last := time.Now()

	for {
		select {
		case <-quit:
			return
		case <-timer.C:
		}

		now := time.Now()
		delta := now.Sub(last)
		if delta < s.period {
			timer.Reset(s.period - delta)
			continue
		}
		last = now

		frame := s.engine.Render(now.Sub(s.t0).Seconds())
		err := s.dispatch(ctx, frame)
		st := s.record(delta, err)
		if err != nil {
			log.Debug().Err(err).Msg("frame dropped")
		} else {
			log.Trace().
				Dur("min", st.MinDelta).
				Dur("max", st.MaxDelta).
				Uint64("frame", st.Frames).
				Msg("frame sent")
			if s.onFrame != nil {
				s.onFrame(frame)
			}
		}

		timer.Reset(max(0, s.period-time.Since(now)))
	}
}

// dispatch hands the frame to the channel as an immediate write.
func (s *Session) dispatch(ctx context.Context, frame dmx.Frame) error {
	return s.bridge.Do(ctx, func() error {
		h := s.handles.Load()
		if h == nil {
			return errNoChannel
		}
		return h.channel.Fade(frame, 0)
	})
}

func (s *Session) record(delta time.Duration, err error) Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if s.stats.Frames+s.stats.Dropped == 0 || delta < s.stats.MinDelta {
		s.stats.MinDelta = delta
	}
	if delta > s.stats.MaxDelta {
		s.stats.MaxDelta = delta
	}
	if err != nil {
		s.stats.Dropped++
	} else {
		s.stats.Frames++
	}
	return s.stats
}
