package jtag

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

// ProbeKind categorizes a detected bridge by family.
type ProbeKind string

const (
	ProbeKindCMSISDAP ProbeKind = "cmsis-dap"
	ProbeKindSim      ProbeKind = "simulator"
)

// ProbeInfo describes one bridge a caller could open, either a real
// USB device or the always-available in-memory simulator.
type ProbeInfo struct {
	Kind        ProbeKind
	Description string
	VendorID    uint16
	ProductID   uint16
}

// Label returns a user-friendly one-line description of the probe.
func (p ProbeInfo) Label() string {
	if p.Description != "" {
		return p.Description
	}
	return fmt.Sprintf("%s (%04X:%04X)", string(p.Kind), p.VendorID, p.ProductID)
}

// knownCMSISDAPProbes lists VID/PID pairs recognized as CMSIS-DAP
// probes, independent of the specific firmware vendor.
var knownCMSISDAPProbes = []ProbeInfo{
	{Kind: ProbeKindCMSISDAP, VendorID: DefaultCMSISDAPVendorID, ProductID: DefaultCMSISDAPProductID, Description: "Raspberry Pi Pico CMSIS-DAP"},
	{Kind: ProbeKindCMSISDAP, VendorID: 0x0d28, ProductID: 0x0204, Description: "DAPLink CMSIS-DAP"},
	{Kind: ProbeKindCMSISDAP, VendorID: 0x1366, ProductID: 0x0101, Description: "SEGGER J-Link CMSIS-DAP"},
}

// DiscoverInterfaces enumerates connected USB devices matching a known
// CMSIS-DAP VID/PID, plus the simulator entry so a caller can always
// exercise playback without hardware attached.
func DiscoverInterfaces(ctx context.Context) ([]ProbeInfo, error) {
	var found []ProbeInfo

	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		for _, known := range knownCMSISDAPProbes {
			if uint16(desc.Vendor) == known.VendorID && uint16(desc.Product) == known.ProductID {
				found = append(found, known)
				break
			}
		}
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return found, err
	}

	found = append(found, ProbeInfo{Kind: ProbeKindSim, Description: "Simulator (no hardware)"})
	return found, nil
}
