// Package jtag implements the player / JTAG controller that drives a
// parsed SVF command list through a TAP state machine and a narrow
// hardware interface, verifying TDO under MASK along the way.
package jtag

import (
	"math/big"
	"strings"
	"time"
)

// AdapterInfo describes capabilities reported by a Bridge implementation.
// It is informational only; the player never branches on it.
type AdapterInfo struct {
	Name         string
	Vendor       string
	Model        string
	SerialNumber string
	Firmware     string
	MinFrequency int // Hertz
	MaxFrequency int // Hertz
	SupportsTRST bool
}

// Bridge is the narrow hardware capability set the player depends on.
// It may be backed by a real USB probe or an in-memory simulator; the
// player neither owns nor closes it.
type Bridge interface {
	// SetFrequency is a best-effort TCK rate request; there is nothing
	// useful to return if the bridge can't hit it exactly.
	SetFrequency(hz float64)

	// SetTRST drives the TRST line. mode is one of "ON", "OFF", "Z",
	// "ABSENT".
	SetTRST(mode string) error

	// PulseTMS clocks bitCount TMS bits (LSB-first from bits) with TDI
	// held low; TDO is ignored.
	PulseTMS(bits byte, bitCount int) error

	// PulseTCK clocks count TCK cycles while holding TMS at tmsHold,
	// blocking until at least minTime has elapsed. A zero count with a
	// positive minTime is a pure delay.
	PulseTCK(tmsHold bool, count int, minTime time.Duration) error

	// ShiftData shifts exactly length bits into TDI from tdiHex
	// (MSB-at-left), raising TMS on the final bit to enter Exit1. If
	// isRead, TDO is captured; otherwise the return value is all zeros.
	// The result is MSB-at-left hex, ceil(length/4) nibbles. isDR is
	// informational only: some transports frame IR and DR scans
	// differently.
	ShiftData(tdiHex string, length int, isDR, isRead bool) (tdoHex string, err error)
}

// hexToLEBytes converts an MSB-at-left hex payload of the given bit
// width into a little-endian byte buffer sized to hold that many bits,
// high bits in the top byte zero-padded.
func hexToLEBytes(hexStr string, bits int) []byte {
	v := new(big.Int)
	if hexStr != "" {
		v.SetString(hexStr, 16)
	}
	nbytes := (bits + 7) / 8
	be := v.Bytes()
	le := make([]byte, nbytes)
	for i := 0; i < len(be) && i < nbytes; i++ {
		le[i] = be[len(be)-1-i]
	}
	return le
}

// leBytesToHex is the inverse of hexToLEBytes: it reassembles a
// little-endian byte buffer into an MSB-at-left hex string of
// ceil(bits/4) nibbles.
func leBytesToHex(buf []byte, bits int) string {
	be := make([]byte, len(buf))
	for i, b := range buf {
		be[len(buf)-1-i] = b
	}
	v := new(big.Int).SetBytes(be)
	n := (bits + 3) / 4
	if n == 0 {
		n = 1
	}
	s := v.Text(16)
	if len(s) < n {
		s = strings.Repeat("0", n-len(s)) + s
	}
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return strings.ToUpper(s)
}

// zeroHex returns a hex string of ceil(bits/4) '0' characters, the
// representation of "all zeros" for a payload of that bit width.
func zeroHex(bits int) string {
	n := (bits + 3) / 4
	if n == 0 {
		n = 1
	}
	return strings.Repeat("0", n)
}

// extractBits copies count bits starting at bit offset start out of buf
// (a little-endian bit buffer) into a new byte-aligned little-endian
// buffer, independent of whether start falls on a byte boundary.
func extractBits(buf []byte, start, count int) []byte {
	out := make([]byte, (count+7)/8)
	for i := 0; i < count; i++ {
		srcBit := start + i
		byteIdx := srcBit / 8
		bitIdx := uint(srcBit % 8)
		if byteIdx >= len(buf) {
			continue
		}
		if buf[byteIdx]&(1<<bitIdx) != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}
