package jtag

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// CMSISDAPBridge implements Bridge against a real CMSIS-DAP probe over
// USB. The player's contract passes whole hex payloads and single
// TMS-pulse bytes; CMSISDAPBridge splits them into CMSIS-DAP's
// single-TMS-per-sequence, ≤64-clock sequences on the wire.
type CMSISDAPBridge struct {
	link     *probeLink
	protocol *CMSISDAPProtocol

	info AdapterInfo
	mu   sync.Mutex
}

// NewCMSISDAPBridge opens the USB device at vid:pid, queries its
// identification strings, and connects it in JTAG mode.
func NewCMSISDAPBridge(vid, pid uint16) (*CMSISDAPBridge, error) {
	link, err := openProbeLink(vid, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to open USB device: %w", err)
	}

	b := &CMSISDAPBridge{
		link:     link,
		protocol: NewCMSISDAPProtocol(link.packetSize),
	}

	if err := b.queryInfo(); err != nil {
		link.close()
		return nil, fmt.Errorf("failed to query device info: %w", err)
	}
	if err := b.connect(); err != nil {
		link.close()
		return nil, fmt.Errorf("failed to connect to JTAG: %w", err)
	}

	return b, nil
}

func (b *CMSISDAPBridge) queryInfo() error {
	cmd := b.protocol.EncodeInfo(InfoVendorID)
	resp, err := b.link.writeRead(cmd)
	if err != nil {
		return err
	}
	vendor, _ := b.protocol.DecodeInfo(resp)

	cmd = b.protocol.EncodeInfo(InfoProductID)
	resp, _ = b.link.writeRead(cmd)
	product, _ := b.protocol.DecodeInfo(resp)

	cmd = b.protocol.EncodeInfo(InfoSerialNum)
	resp, _ = b.link.writeRead(cmd)
	serial, _ := b.protocol.DecodeInfo(resp)

	cmd = b.protocol.EncodeInfo(InfoFirmwareVer)
	resp, _ = b.link.writeRead(cmd)
	firmware, _ := b.protocol.DecodeInfo(resp)

	b.info = AdapterInfo{
		Name:         "CMSIS-DAP Probe",
		Vendor:       vendor,
		Model:        product,
		SerialNumber: serial,
		Firmware:     firmware,
		MinFrequency: 1000,
		MaxFrequency: 10_000_000,
		SupportsTRST: true,
	}
	return nil
}

func (b *CMSISDAPBridge) connect() error {
	cmd := b.protocol.EncodeConnect(PortJTAG)
	resp, err := b.link.writeRead(cmd)
	if err != nil {
		return err
	}
	port, err := b.protocol.DecodeConnect(resp)
	if err != nil {
		return err
	}
	if port != PortJTAG {
		return fmt.Errorf("failed to connect to JTAG (got port %d)", port)
	}
	return nil
}

// Info reports the probe's identification strings, for ambient CLI
// display only; it is not part of the Bridge contract.
func (b *CMSISDAPBridge) Info() AdapterInfo {
	return b.info
}

// Close disconnects from the probe and releases the USB device.
func (b *CMSISDAPBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := b.protocol.EncodeDisconnect()
	b.link.writeRead(cmd)
	return b.link.close()
}

func (b *CMSISDAPBridge) SetFrequency(hz float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := b.protocol.EncodeSetClock(uint32(hz))
	resp, err := b.link.writeRead(cmd)
	if err != nil {
		return
	}
	_ = b.protocol.DecodeSetClock(resp)
}

// SetTRST drives nTRST via DAP_SWJ_Pins. CMSIS-DAP's pin model has no
// true high-impedance output, so "Z" is approximated as deasserted.
func (b *CMSISDAPBridge) SetTRST(mode string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var output byte
	switch strings.ToUpper(mode) {
	case "ON":
		output = 0
	case "OFF", "ABSENT", "Z":
		output = PinTRST
	default:
		return fmt.Errorf("jtag: unrecognized TRST mode %q", mode)
	}

	cmd := b.protocol.EncodeSWJPins(output, PinTRST, 0)
	resp, err := b.link.writeRead(cmd)
	if err != nil {
		return fmt.Errorf("set_trst failed: %w", err)
	}
	_, err = b.protocol.DecodeSWJPins(resp)
	return err
}

// PulseTMS clocks bitCount TMS bits (LSB-first from bits) with TDI
// held low. CMSIS-DAP sequences carry one TMS value each, so a pattern
// that changes TMS mid-byte is split into same-valued runs.
func (b *CMSISDAPBridge) PulseTMS(bits byte, bitCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bitCount <= 0 || bitCount > 8 {
		return fmt.Errorf("jtag: pulse_tms bit count %d out of range", bitCount)
	}

	var sequences []JTAGSequence
	i := 0
	for i < bitCount {
		tmsVal := bits&(1<<uint(i)) != 0
		run := 1
		for i+run < bitCount && (bits&(1<<uint(i+run)) != 0) == tmsVal {
			run++
		}
		sequences = append(sequences, NewJTAGSequence(run, tmsVal, false, make([]byte, (run+7)/8)))
		i += run
	}

	cmd := b.protocol.EncodeJTAGSequence(sequences)
	resp, err := b.link.writeRead(cmd)
	if err != nil {
		return fmt.Errorf("pulse_tms failed: %w", err)
	}
	_, err = b.protocol.DecodeJTAGSequence(resp, sequences)
	return err
}

// PulseTCK clocks count TCK cycles holding TMS at tmsHold, splitting
// into ≤64-clock CMSIS-DAP sequences, then sleeps out any of minTime
// not already consumed by the transaction.
func (b *CMSISDAPBridge) PulseTCK(tmsHold bool, count int, minTime time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	pos := 0
	for pos < count {
		n := count - pos
		if n > 64 {
			n = 64
		}
		seq := NewJTAGSequence(n, tmsHold, false, make([]byte, (n+7)/8))
		cmd := b.protocol.EncodeJTAGSequence([]JTAGSequence{seq})
		resp, err := b.link.writeRead(cmd)
		if err != nil {
			return fmt.Errorf("pulse_tck failed: %w", err)
		}
		if _, err := b.protocol.DecodeJTAGSequence(resp, []JTAGSequence{seq}); err != nil {
			return err
		}
		pos += n
	}

	if remaining := minTime - time.Since(start); remaining > 0 {
		time.Sleep(remaining)
	}
	return nil
}

// ShiftData shifts length bits of tdiHex (MSB-at-left) into the chain,
// raising TMS on the final bit to land in Exit1, and returns the
// captured TDO (or zeros, if isRead is false) in the same convention.
func (b *CMSISDAPBridge) ShiftData(tdiHex string, length int, isDR, isRead bool) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if length <= 0 {
		return "", fmt.Errorf("jtag: shift length must be positive, got %d", length)
	}

	le := hexToLEBytes(tdiHex, length)

	var sequences []JTAGSequence
	pos := 0
	for pos < length {
		n := length - pos
		if n > 64 {
			n = 64
		}
		tms := false
		if pos+n == length {
			if n > 1 {
				n--
			} else {
				tms = true
			}
		}
		chunk := extractBits(le, pos, n)
		sequences = append(sequences, NewJTAGSequence(n, tms, isRead, chunk))
		pos += n
	}

	cmd := b.protocol.EncodeJTAGSequence(sequences)
	resp, err := b.link.writeRead(cmd)
	if err != nil {
		return "", fmt.Errorf("shift_data failed: %w", err)
	}
	tdoSeqs, err := b.protocol.DecodeJTAGSequence(resp, sequences)
	if err != nil {
		return "", err
	}

	if !isRead {
		return zeroHex(length), nil
	}

	result := make([]byte, (length+7)/8)
	bitPos := 0
	for si, seqTDO := range tdoSeqs {
		n := sequences[si].TCKCount()
		for i := 0; i < n; i++ {
			byteIdx, bitIdx := i/8, uint(i%8)
			if byteIdx < len(seqTDO) && seqTDO[byteIdx]&(1<<bitIdx) != 0 {
				result[bitPos/8] |= 1 << uint(bitPos%8)
			}
			bitPos++
		}
	}
	return leBytesToHex(result, length), nil
}
