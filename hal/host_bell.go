//go:build !tinygo && cgo

package hal

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"inkterm/internal/logging"
)

const speakerRate = beep.SampleRate(48000)

// speakerBell rings through the system speaker. The speaker is opened on
// the first ring; if that fails the bell stays silent.
type speakerBell struct {
	mu     sync.Mutex
	inited bool
	failed bool
}

// NewSpeakerBell returns the bell used outside the window backend.
func NewSpeakerBell() Bell { return &speakerBell{} }

func (b *speakerBell) Ring() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failed {
		return
	}
	if !b.inited {
		if err := speaker.Init(speakerRate, speakerRate.N(100*time.Millisecond)); err != nil {
			logging.Logger().Warn("bell: speaker unavailable", "err", err)
			b.failed = true
			return
		}
		b.inited = true
	}
	speaker.Play(beep.Take(speakerRate.N(bellLength), &toneStreamer{sr: speakerRate, freq: bellFreq}))
}

type toneStreamer struct {
	sr   beep.SampleRate
	freq float64
	pos  int
}

func (g *toneStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	total := float64(g.sr.N(bellLength))
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		s := 0.3 * math.Sin(2*math.Pi*g.freq*t) * math.Max(0, 1-float64(g.pos)/total)
		samples[i][0] = s
		samples[i][1] = s
		g.pos++
	}
	return len(samples), true
}

func (g *toneStreamer) Err() error { return nil }
