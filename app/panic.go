package app

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"inkterm/internal/logging"
)

// PanicError is returned once a halted terminal is dismissed.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// halt replaces the screen with a report of the panic. The terminal stops
// talking to the child; the next key press ends the loop.
func (t *Terminal) halt(v any) {
	perr := &PanicError{Value: v, Stack: debug.Stack()}
	t.halted = perr
	logging.Logger().Error("app: panic", "panic", v, "stack", string(perr.Stack))

	defer func() {
		if v := recover(); v != nil {
			logging.Logger().Error("app: panic while reporting panic", "panic", v)
		}
	}()

	t.vt.SetOutput(nil)
	t.vt.Reset()
	cols := max(t.m.Cols(), 1)
	var b strings.Builder
	b.WriteString("\x1b[1;31minkterm panic\x1b[0m\r\n")
	lines := []string{fmt.Sprintf("panic: %v", v), "stack:"}
	lines = append(lines, strings.Split(string(perr.Stack), "\n")...)
	lines = append(lines, "", "press any key to exit")
	for _, line := range lines {
		line = strings.ReplaceAll(line, "\t", "  ")
		for {
			chunk, rest := takeRunes(line, cols)
			b.WriteString(chunk)
			b.WriteString("\r\n")
			line = strings.TrimLeft(rest, " ")
			if line == "" {
				break
			}
		}
	}
	// No line feed after the last line so a full screen does not scroll.
	t.vt.Write([]byte(strings.TrimSuffix(b.String(), "\r\n")))
	t.r.Draw(true, 0)
}

func (t *Terminal) haltedStep() error {
	select {
	case <-t.dev.Keys():
		return t.halted
	default:
	}
	now := t.now()
	dt := int(now.Sub(t.last) / time.Millisecond)
	t.last = now
	t.r.Draw(false, max(dt, 0))
	return nil
}

// takeRunes splits s after n runes.
func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	i, count := 0, 0
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}
