// Package hal holds the display backends the terminal can run on: an
// in-memory framebuffer, a desktop window, the Linux framebuffer device,
// a text-terminal preview and TinyGo display drivers.
package hal

import (
	"errors"
	"time"

	"inkterm/ink/display"
	"inkterm/ink/vt"
)

var (
	ErrNotImplemented = errors.New("not implemented")
	// ErrClosed is returned by devices used after they were shut down.
	ErrClosed = errors.New("device closed")
)

// Device is a display together with the input and bell that belong to it.
type Device interface {
	display.Device

	// Keys delivers key presses. A nil channel means the device has no
	// keyboard.
	Keys() <-chan vt.KeyEvent
	// Bell signals the user. It must not block.
	Bell()
	Close() error
}

// App is stepped once per frame from the runner's goroutine. Apps that
// also implement io.Closer are closed when the runner returns.
type App interface {
	Step() error
}

// StepFunc adapts a function to App.
type StepFunc func() error

func (f StepFunc) Step() error { return f() }

// NewApp builds the application on top of dev.
type NewApp func(dev Device) (App, error)

// Bell is a sound output for BEL.
type Bell interface {
	Ring()
}

// The bell tone.
const (
	bellFreq   = 880
	bellLength = 120 * time.Millisecond
)

type nopBell struct{}

func (nopBell) Ring() {}

// sendKey queues ev without blocking; events are dropped when the consumer
// falls behind.
func sendKey(ch chan<- vt.KeyEvent, ev vt.KeyEvent) {
	select {
	case ch <- ev:
	default:
	}
}
