package jtag

import (
	"fmt"
	"time"
)

// ShiftHook lets a SimBridge emulate device-specific TDO behavior.
type ShiftHook func(tdiHex string, length int, isDR, isRead bool) (string, error)

// ShiftOp captures the last shift_data invocation for inspection in
// tests.
type ShiftOp struct {
	TDIHex string
	Length int
	IsDR   bool
	IsRead bool
}

// SimBridge is an in-memory Bridge useful for unit tests and for
// exercising the player without hardware attached. It records the last
// shift request and TMS/TCK traffic, and can optionally supply
// deterministic TDO via OnShift.
type SimBridge struct {
	Info AdapterInfo

	OnShift ShiftHook

	speedHz    float64
	trstMode   string
	lastShift  ShiftOp
	tmsHistory []byte
	tmsBits    []int
	tckCycles  int
}

// NewSimBridge constructs a simulator configured with the given
// AdapterInfo.
func NewSimBridge(info AdapterInfo) *SimBridge {
	return &SimBridge{Info: info}
}

// LastShift returns a copy of the most recent shift_data request.
func (s *SimBridge) LastShift() ShiftOp {
	return s.lastShift
}

// SpeedHz reports the frequency most recently requested.
func (s *SimBridge) SpeedHz() float64 { return s.speedHz }

// TRSTMode reports the TRST mode most recently requested.
func (s *SimBridge) TRSTMode() string { return s.trstMode }

// TMSHistory returns the byte/bit-count pairs passed to PulseTMS, in
// call order, as parallel slices.
func (s *SimBridge) TMSHistory() ([]byte, []int) {
	return append([]byte(nil), s.tmsHistory...), append([]int(nil), s.tmsBits...)
}

// TCKCycles reports the total TCK count requested across all
// PulseTCK calls.
func (s *SimBridge) TCKCycles() int { return s.tckCycles }

func (s *SimBridge) SetFrequency(hz float64) {
	s.speedHz = hz
}

func (s *SimBridge) SetTRST(mode string) error {
	s.trstMode = mode
	return nil
}

func (s *SimBridge) PulseTMS(bits byte, bitCount int) error {
	if bitCount <= 0 || bitCount > 8 {
		return fmt.Errorf("jtag: pulse_tms bit count %d out of range", bitCount)
	}
	s.tmsHistory = append(s.tmsHistory, bits)
	s.tmsBits = append(s.tmsBits, bitCount)
	return nil
}

func (s *SimBridge) PulseTCK(tmsHold bool, count int, minTime time.Duration) error {
	s.tckCycles += count
	if minTime > 0 {
		time.Sleep(minTime)
	}
	return nil
}

func (s *SimBridge) ShiftData(tdiHex string, length int, isDR, isRead bool) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("jtag: shift length must be positive, got %d", length)
	}

	s.lastShift = ShiftOp{TDIHex: tdiHex, Length: length, IsDR: isDR, IsRead: isRead}

	if s.OnShift != nil {
		return s.OnShift(tdiHex, length, isDR, isRead)
	}

	if !isRead {
		return zeroHex(length), nil
	}
	// Default: echo TDI back as TDO, left-padded/truncated to the
	// expected nibble width, to keep tests predictable.
	n := (length + 3) / 4
	hex := tdiHex
	if len(hex) < n {
		hex = zeroHex(length)[:n-len(hex)] + hex
	}
	if len(hex) > n {
		hex = hex[len(hex)-n:]
	}
	return hex, nil
}
