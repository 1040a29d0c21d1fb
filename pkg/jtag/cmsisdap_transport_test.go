package jtag

import "testing"

func TestDefaultCMSISDAPIdentifiers(t *testing.T) {
	if DefaultCMSISDAPVendorID != 0x2E8A {
		t.Errorf("DefaultCMSISDAPVendorID = 0x%04X, want 0x2E8A", DefaultCMSISDAPVendorID)
	}
	if DefaultCMSISDAPProductID != 0x000C {
		t.Errorf("DefaultCMSISDAPProductID = 0x%04X, want 0x000C", DefaultCMSISDAPProductID)
	}
	if defaultPacketSize != 64 {
		t.Errorf("defaultPacketSize = %d, want 64", defaultPacketSize)
	}
}

// TestProbeLinkIntegration only runs against real hardware.
func TestProbeLinkIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	link, err := openProbeLink(DefaultCMSISDAPVendorID, DefaultCMSISDAPProductID)
	if err != nil {
		t.Skipf("no CMSIS-DAP hardware found: %v", err)
	}
	defer link.close()

	if link.packetSize < 64 {
		t.Errorf("packet size too small: %d", link.packetSize)
	}
	t.Logf("packet size: %d bytes", link.packetSize)

	resp, err := link.writeRead([]byte{0x00, 0x01}) // DAP_Info, Vendor ID
	if err != nil {
		t.Fatalf("writeRead failed: %v", err)
	}
	if len(resp) < 2 {
		t.Fatalf("response too short: %d bytes", len(resp))
	}
	if resp[0] != 0x00 {
		t.Errorf("expected response command ID 0x00, got 0x%02X", resp[0])
	}

	strLen := int(resp[1])
	if strLen > 0 && len(resp) >= 2+strLen {
		t.Logf("probe vendor: %s", string(resp[2:2+strLen]))
	}
}
