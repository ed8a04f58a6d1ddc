//go:build !tinygo && cgo

package hal

import (
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

const bellSampleRate = 48000

var (
	bellCtxOnce sync.Once
	bellCtx     *audio.Context
)

// ebitenBell plays a short tone through ebiten's audio context, which
// exists once per process.
type ebitenBell struct {
	mu     sync.Mutex
	player *audio.Player
}

func newEbitenBell() *ebitenBell { return &ebitenBell{} }

func (b *ebitenBell) Ring() {
	bellCtxOnce.Do(func() { bellCtx = audio.NewContext(bellSampleRate) })

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		b.player = bellCtx.NewPlayerFromBytes(bellTone(bellSampleRate))
		b.player.SetVolume(0.3)
	}
	if b.player.IsPlaying() {
		return
	}
	_ = b.player.SetPosition(0)
	b.player.Play()
}

// bellTone returns a sine tone as 16-bit little-endian stereo PCM, faded
// out linearly to avoid a click at the end.
func bellTone(rate int) []byte {
	n := int(int64(rate) * int64(bellLength) / int64(time.Second))
	buf := make([]byte, n*4)
	for i := 0; i < n; i++ {
		amp := 0.5 * float64(n-i) / float64(n)
		s := int16(amp * math.MaxInt16 * math.Sin(2*math.Pi*bellFreq*float64(i)/float64(rate)))
		buf[4*i+0] = byte(s)
		buf[4*i+1] = byte(s >> 8)
		buf[4*i+2] = byte(s)
		buf[4*i+3] = byte(s >> 8)
	}
	return buf
}
