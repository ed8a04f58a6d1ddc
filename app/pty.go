//go:build !tinygo

package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/shlex"

	"inkterm/internal/logging"
)

// DefaultTerm is exported to the child as TERM.
const DefaultTerm = "xterm-256color"

// Child is the program running inside the terminal.
type Child interface {
	io.Writer
	// Output delivers what the child printed. It is closed once the child
	// has exited and its output is drained.
	Output() <-chan []byte
	Resize(rows, cols int) error
	Close() error
}

type ptyChild struct {
	cmd  *exec.Cmd
	f    *os.File
	out  chan []byte
	done chan struct{}
}

// ShellCommand splits the configured command line, falling back to $SHELL
// and then /bin/sh.
func ShellCommand(shell string) ([]string, error) {
	if strings.TrimSpace(shell) == "" {
		shell = os.Getenv("SHELL")
	}
	if strings.TrimSpace(shell) == "" {
		shell = "/bin/sh"
	}
	argv, err := shlex.Split(shell)
	if err != nil {
		return nil, fmt.Errorf("shell %q: %w", shell, err)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty shell command")
	}
	return argv, nil
}

// childEnv replaces TERM in the current environment.
func childEnv(term string) []string {
	env := []string{"TERM=" + term}
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "TERM=") {
			env = append(env, kv)
		}
	}
	return env
}

// StartChild runs argv on a new pseudo terminal of the given size.
func StartChild(argv []string, rows, cols int) (Child, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = childEnv(DefaultTerm)
	f, err := pty.StartWithSize(cmd, winsize(rows, cols))
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	c := &ptyChild{cmd: cmd, f: f, out: make(chan []byte, 16), done: make(chan struct{})}
	go c.readLoop()
	logging.Logger().Info("child: started", "cmd", argv, "pid", cmd.Process.Pid, "rows", rows, "cols", cols)
	return c, nil
}

func winsize(rows, cols int) *pty.Winsize {
	return &pty.Winsize{Rows: uint16(max(rows, 1)), Cols: uint16(max(cols, 1))}
}

func (c *ptyChild) readLoop() {
	defer close(c.done)
	defer close(c.out)
	buf := make([]byte, 4096)
	for {
		n, err := c.f.Read(buf)
		if n > 0 {
			c.out <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			// EIO once the child side is gone.
			break
		}
	}
	err := c.cmd.Wait()
	logging.Logger().Info("child: exited", "err", err)
}

func (c *ptyChild) Output() <-chan []byte { return c.out }

func (c *ptyChild) Write(p []byte) (int, error) { return c.f.Write(p) }

func (c *ptyChild) Resize(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	logging.Logger().Debug("child: resize", "rows", rows, "cols", cols)
	return pty.Setsize(c.f, winsize(rows, cols))
}

// Close asks the child to terminate and waits briefly for it.
func (c *ptyChild) Close() error {
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(syscall.SIGTERM)
	}
	err := c.f.Close()
	go func() {
		for range c.out {
		}
	}()
	select {
	case <-c.done:
	case <-time.After(time.Second):
		_ = c.cmd.Process.Kill()
	}
	return err
}
