//go:build linux && !tinygo

package hal

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"inkterm/ink/color"
	"inkterm/ink/display"
	"inkterm/ink/geom"
	"inkterm/ink/vt"
	"inkterm/internal/logging"
)

const (
	ioctlGetVScreenInfo = 0x4600
	ioctlGetFScreenInfo = 0x4602

	ioctlMXCFBSendUpdate            = 0x4040462E
	ioctlMXCFBWaitForUpdateComplete = 0x4004462F

	tempUseAmbient          = 0x1000
	epdcFlagForceMonochrome = 0x20

	maxMarker = 1024
)

// fbVarScreenInfo mirrors struct fb_var_screeninfo.
type fbVarScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset         uint32
	BitsPerPixel             uint32
	Grayscale                uint32
	Red, Green, Blue, Transp fbBitfield
	NonStd                   uint32
	Activate                 uint32
	Height, Width            uint32
	AccelFlags               uint32
	PixClock                 uint32
	LeftMargin, RightMargin  uint32
	UpperMargin, LowerMargin uint32
	HSyncLen, VSyncLen       uint32
	Sync, VMode              uint32
	Rotate                   uint32
	Colorspace               uint32
	Reserved                 [4]uint32
}

// fbFixScreenInfo mirrors struct fb_fix_screeninfo.
type fbFixScreenInfo struct {
	ID           [16]byte
	SMemStart    uintptr
	SMemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MMIOStart    uintptr
	MMIOLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

type mxcfbRect struct {
	Top, Left, Width, Height uint32
}

// mxcfbUpdateData mirrors struct mxcfb_update_data of the i.MX EPDC driver.
type mxcfbUpdateData struct {
	Region       mxcfbRect
	WaveformMode uint32
	UpdateMode   uint32
	UpdateMarker uint32
	Temp         int32
	Flags        uint32
	AltBuffer    struct {
		PhysAddr      uint32
		Width, Height uint32
		Region        mxcfbRect
	}
}

// FBDevConfig selects the framebuffer device and its companions.
type FBDevConfig struct {
	Path     string
	Keyboard bool
	Bell     Bell
}

// FBDev draws onto a Linux framebuffer device. On i.MX e-ink controllers
// every flushed rect is followed by a panel update.
type FBDev struct {
	fd     int
	mem    []byte
	fb     *Framebuffer
	width  int
	height int
	eink   bool

	marker     uint32
	prevMarker uint32
	monoRun    int

	kbd  *stdinKeyboard
	bell Bell
}

func ioctlPtr(fd int, req uint, p unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(p)); errno != 0 {
		return errno
	}
	return nil
}

// OpenFBDev opens and maps the framebuffer at cfg.Path.
func OpenFBDev(cfg FBDevConfig) (_ *FBDev, err error) {
	fd, err := unix.Open(cfg.Path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("fbdev: open %s: %w", cfg.Path, err)
	}
	defer func() {
		if err != nil {
			unix.Close(fd)
		}
	}()

	var vinfo fbVarScreenInfo
	var finfo fbFixScreenInfo
	if err := ioctlPtr(fd, ioctlGetVScreenInfo, unsafe.Pointer(&vinfo)); err != nil {
		return nil, fmt.Errorf("fbdev: FBIOGET_VSCREENINFO: %w", err)
	}
	if err := ioctlPtr(fd, ioctlGetFScreenInfo, unsafe.Pointer(&finfo)); err != nil {
		return nil, fmt.Errorf("fbdev: FBIOGET_FSCREENINFO: %w", err)
	}
	if vinfo.BitsPerPixel == 0 || vinfo.BitsPerPixel > 32 {
		return nil, fmt.Errorf("fbdev: unsupported depth %d", vinfo.BitsPerPixel)
	}

	id := string(bytes.TrimRight(finfo.ID[:], "\x00"))
	layout := layoutFromBitfields(vinfo.BitsPerPixel, vinfo.Red, vinfo.Green, vinfo.Blue, vinfo.Transp, vinfo.Grayscale != 0)

	size := int(finfo.LineLength) * int(vinfo.YResVirtual)
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("fbdev: mmap: %w", err)
	}
	stride := int(finfo.LineLength)
	offs := int(vinfo.XOffset)*layout.BytesPerPixel() + int(vinfo.YOffset)*stride

	d := &FBDev{
		fd:     fd,
		mem:    mem,
		fb:     framebufferOver(mem[offs:], int(vinfo.XRes), int(vinfo.YRes), stride, layout),
		width:  int(vinfo.XRes),
		height: int(vinfo.YRes),
		eink:   strings.HasPrefix(id, "mxc_epdc"),
		bell:   cfg.Bell,
	}
	if d.bell == nil {
		d.bell = nopBell{}
	}
	if cfg.Keyboard {
		if d.kbd, err = openStdinKeyboard(); err != nil {
			unix.Munmap(mem)
			return nil, fmt.Errorf("fbdev: keyboard: %w", err)
		}
	}
	logging.Logger().Info("fbdev: opened", "path", cfg.Path, "id", id,
		"w", d.width, "h", d.height, "bpp", vinfo.BitsPerPixel, "eink", d.eink)
	return d, nil
}

func (d *FBDev) Bounds() geom.Rect { return geom.R(0, 0, d.width, d.height) }

func (d *FBDev) Flush(reqs []display.CommitRequest, composite []color.RGBA, stride int) error {
	if err := d.fb.Flush(reqs, composite, stride); err != nil {
		return err
	}
	if !d.eink {
		return nil
	}
	var errs []error
	for _, req := range reqs {
		r := d.Bounds().Clip(req.Rect)
		if r.Empty() {
			continue
		}
		if err := d.sendUpdate(r, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *FBDev) sendUpdate(r geom.Rect, req display.CommitRequest) error {
	d.marker++
	if d.marker > maxMarker {
		d.marker = 1
	}
	if d.prevMarker != 0 {
		prev := d.prevMarker
		if err := ioctlPtr(d.fd, ioctlMXCFBWaitForUpdateComplete, unsafe.Pointer(&prev)); err != nil {
			logging.Logger().Debug("fbdev: wait for update", "marker", prev, "err", err)
		}
	}

	wave, mode := waveform(req.Mode, d.monoRun)
	upd := mxcfbUpdateData{
		Region: mxcfbRect{
			Top:    uint32(r.Y0),
			Left:   uint32(r.X0),
			Width:  uint32(r.Width()),
			Height: uint32(r.Height()),
		},
		WaveformMode: wave,
		UpdateMode:   mode,
		UpdateMarker: d.marker,
		Temp:         tempUseAmbient,
	}
	if req.Mode.Monochrome() {
		upd.Flags = epdcFlagForceMonochrome
		d.monoRun++
	} else {
		d.monoRun = 0
	}
	if err := ioctlPtr(d.fd, ioctlMXCFBSendUpdate, unsafe.Pointer(&upd)); err != nil {
		return fmt.Errorf("fbdev: MXCFB_SEND_UPDATE: %w", err)
	}
	d.prevMarker = d.marker
	return nil
}

func (d *FBDev) Keys() <-chan vt.KeyEvent { return d.kbd.Keys() }
func (d *FBDev) Bell()                    { d.bell.Ring() }

// Close restores the keyboard, unmaps the framebuffer and closes the device.
func (d *FBDev) Close() error {
	return errors.Join(d.kbd.Close(), unix.Munmap(d.mem), unix.Close(d.fd))
}
