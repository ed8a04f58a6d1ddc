//go:build !linux && !tinygo

package hal

// FBDevConfig selects the framebuffer device and its companions.
type FBDevConfig struct {
	Path     string
	Keyboard bool
	Bell     Bell
}

// FBDev is only available on Linux.
type FBDev struct{ Framebuffer }

func OpenFBDev(FBDevConfig) (*FBDev, error) { return nil, ErrNotImplemented }
