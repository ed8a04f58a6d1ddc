//go:build linux && !tinygo

package hal

import (
	"errors"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"inkterm/ink/vt"
	"inkterm/internal/logging"
)

// Pending input older than this is decoded as is, so a lone ESC press is
// told apart from the start of a sequence.
const escTimeout = 50 * time.Millisecond

// stdinKeyboard reads keys from a terminal in raw mode.
type stdinKeyboard struct {
	fd    int
	state *term.State
	ch    chan vt.KeyEvent
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// openStdinKeyboard switches stdin to raw mode. It returns nil when stdin
// is not a terminal.
func openStdinKeyboard() (*stdinKeyboard, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		logging.Logger().Info("stdin: not a terminal, keyboard disabled")
		return nil, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	k := &stdinKeyboard{
		fd:    fd,
		state: state,
		ch:    make(chan vt.KeyEvent, 64),
		stop:  make(chan struct{}),
	}
	k.wg.Add(1)
	go k.readLoop()
	return k, nil
}

func (k *stdinKeyboard) Keys() <-chan vt.KeyEvent {
	if k == nil {
		return nil
	}
	return k.ch
}

func (k *stdinKeyboard) readLoop() {
	defer k.wg.Done()
	fds := []unix.PollFd{{Fd: int32(k.fd), Events: unix.POLLIN}}
	buf := make([]byte, 256)
	var pending []byte
	var since time.Time
	for {
		select {
		case <-k.stop:
			return
		default:
		}
		timeout := 100
		if len(pending) > 0 {
			timeout = int(escTimeout / time.Millisecond)
		}
		n, err := unix.Poll(fds, timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			logging.Logger().Warn("stdin: poll", "err", err)
			return
		}
		if n > 0 && fds[0].Revents&unix.POLLIN != 0 {
			r, err := unix.Read(k.fd, buf)
			if err != nil && !errors.Is(err, unix.EINTR) && !errors.Is(err, unix.EAGAIN) {
				logging.Logger().Warn("stdin: read", "err", err)
				return
			}
			if r > 0 {
				if len(pending) == 0 {
					since = time.Now()
				}
				pending = append(pending, buf[:r]...)
			}
		}
		if len(pending) == 0 {
			continue
		}
		evs, used := decodeKeys(pending, time.Since(since) >= escTimeout)
		for _, ev := range evs {
			sendKey(k.ch, ev)
		}
		pending = append(pending[:0], pending[used:]...)
		if used > 0 {
			since = time.Now()
		}
	}
}

// Close stops the reader and restores the terminal mode.
func (k *stdinKeyboard) Close() error {
	if k == nil {
		return nil
	}
	var err error
	k.once.Do(func() {
		close(k.stop)
		k.wg.Wait()
		err = term.Restore(k.fd, k.state)
	})
	return err
}
