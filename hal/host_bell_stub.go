//go:build !tinygo && !cgo

package hal

// NewSpeakerBell returns a silent bell; audio output needs cgo.
func NewSpeakerBell() Bell { return nopBell{} }
