package jtag

import (
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Default CMSIS-DAP probe identification, used when the caller has no
// better VID/PID (e.g. svfplay's --vid/--pid defaults).
const (
	DefaultCMSISDAPVendorID  = 0x2E8A
	DefaultCMSISDAPProductID = 0x000C

	// CMSIS-DAP v1/v2 full-speed bulk packets are 64 bytes unless the
	// IN endpoint descriptor says otherwise.
	defaultPacketSize = 64
	defaultTimeout     = 5 * time.Second
)

// probeLink is the bulk USB transport underneath CMSISDAPBridge: one
// claimed vendor interface with one bulk OUT and one bulk IN endpoint,
// framed as fixed-size CMSIS-DAP packets.
type probeLink struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface

	out *gousb.OutEndpoint
	in  *gousb.InEndpoint

	packetSize int
	timeout    time.Duration
}

// openProbeLink opens the USB device at vid:pid and claims its
// CMSIS-DAP vendor interface.
func openProbeLink(vid, pid uint16) (*probeLink, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("USB error: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("device not found (VID:0x%04X PID:0x%04X)", vid, pid)
	}

	// Best-effort: not every platform needs or supports this.
	dev.SetAutoDetach(true)

	link := &probeLink{
		ctx:        ctx,
		dev:        dev,
		packetSize: defaultPacketSize,
		timeout:    defaultTimeout,
	}

	if err := link.open(); err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	return link, nil
}

// open claims the device's vendor-class interface (falling back to
// interface 0 if none is tagged vendor-specific) and binds its bulk
// endpoints in a single pass over the descriptor.
func (l *probeLink) open() error {
	cfg, err := l.dev.Config(1)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	intfNum := 0
	for _, desc := range cfg.Desc.Interfaces {
		if len(desc.AltSettings) > 0 && desc.AltSettings[0].Class == gousb.ClassVendorSpec {
			intfNum = desc.Number
			break
		}
	}

	intf, err := cfg.Interface(intfNum, 0)
	if err != nil {
		return fmt.Errorf("failed to claim interface %d: %w", intfNum, err)
	}
	l.intf = intf

	var outAddr, inAddr int
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionOut:
			outAddr = ep.Number
		case gousb.EndpointDirectionIn:
			inAddr = ep.Number
			l.packetSize = ep.MaxPacketSize
		}
	}
	if outAddr == 0 || inAddr == 0 {
		intf.Close()
		return fmt.Errorf("bulk endpoints not found on interface %d", intfNum)
	}

	if l.out, err = intf.OutEndpoint(outAddr); err != nil {
		intf.Close()
		return fmt.Errorf("failed to open OUT endpoint: %w", err)
	}
	if l.in, err = intf.InEndpoint(inAddr); err != nil {
		intf.Close()
		return fmt.Errorf("failed to open IN endpoint: %w", err)
	}
	return nil
}

// writeRead sends cmd as one fixed-size packet and returns the probe's
// response, trimmed to the bytes actually received.
func (l *probeLink) writeRead(cmd []byte) ([]byte, error) {
	packet := make([]byte, l.packetSize)
	copy(packet, cmd)
	if _, err := l.out.Write(packet); err != nil {
		return nil, fmt.Errorf("USB write failed: %w", err)
	}

	resp := make([]byte, l.packetSize)
	n, err := l.in.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("USB read failed: %w", err)
	}
	return resp[:n], nil
}

func (l *probeLink) setTimeout(d time.Duration) { l.timeout = d }

func (l *probeLink) close() error {
	if l.intf != nil {
		l.intf.Close()
		l.intf = nil
	}
	if l.dev != nil {
		l.dev.Close()
		l.dev = nil
	}
	if l.ctx != nil {
		l.ctx.Close()
		l.ctx = nil
	}
	return nil
}
