package jtag

import (
	"strconv"
	"strings"
	"time"

	"github.com/svftools/svfplay/pkg/svf"
	"github.com/svftools/svfplay/pkg/tap"
)

// ProgressFunc reports play progress after each dispatched command:
// the 1-based count of commands completed so far, the total command count,
// the accumulated error count, and whether play is about to abort
// because the error threshold was reached.
type ProgressFunc func(current, total int, errors uint64, aborting bool)

// IgnoredFunc is called once for every dispatched command that has no
// hardware effect (recognized-but-unhandled SVF commands, plus unknown
// lines the parser could not classify), but only when verbose is set;
// it lets a caller surface what Play silently skipped.
type IgnoredFunc func(cmd svf.Command)

// Controller is the player / JTAG controller: it walks a parsed SVF
// command list, drives TAP transitions and register shifts through a
// Bridge, and verifies TDO under MASK. It is single-threaded and
// synchronous — each command, including any hardware round-trips,
// completes before the next begins.
type Controller struct {
	bridge  Bridge
	machine *tap.Machine

	endIRState  tap.State
	endDRState  tap.State
	frequencyHz float64
	errorCount  uint64

	maxErrors uint64
	verbose   bool
	progress  ProgressFunc
	ignored   IgnoredFunc
}

// NewController creates a player bound to bridge with controller state
// initialized per the data model: current state Reset, end states
// Idle, frequency 1 MHz, and max errors 1 (abort on the first error).
func NewController(bridge Bridge, verbose bool) *Controller {
	return &Controller{
		bridge:      bridge,
		machine:     tap.NewMachine(),
		endIRState:  tap.Idle,
		endDRState:  tap.Idle,
		frequencyHz: 1e6,
		maxErrors:   1,
		verbose:     verbose,
	}
}

// SetProgressCallback installs fn to be called after every dispatched
// command.
func (c *Controller) SetProgressCallback(fn ProgressFunc) { c.progress = fn }

// SetIgnoredCallback installs fn to be called for each ignored command,
// when verbose is set. fn is never called otherwise.
func (c *Controller) SetIgnoredCallback(fn IgnoredFunc) { c.ignored = fn }

// SetMaxErrors sets the abort threshold; 0 disables it.
func (c *Controller) SetMaxErrors(n uint64) { c.maxErrors = n }

// ErrorCount reports the accumulated error count.
func (c *Controller) ErrorCount() uint64 { return c.errorCount }

// CurrentState reports the TAP state the controller believes it is in.
func (c *Controller) CurrentState() tap.State { return c.machine.State() }

// EndIRState and EndDRState report the current end-state policy.
func (c *Controller) EndIRState() tap.State { return c.endIRState }
func (c *Controller) EndDRState() tap.State { return c.endDRState }

// Play dispatches every command in commands in order, stopping early if
// the error threshold is reached. It returns true iff error_count == 0
// at the end.
func (c *Controller) Play(commands []svf.Command) bool {
	total := len(commands)
	for i, cmd := range commands {
		c.dispatch(cmd)

		aborting := c.maxErrors > 0 && c.errorCount >= c.maxErrors
		if c.progress != nil {
			c.progress(i+1, total, c.errorCount, aborting)
		}
		if aborting {
			break
		}
	}
	return c.errorCount == 0
}

func (c *Controller) dispatch(cmd svf.Command) {
	switch cmd.Kind {
	case svf.KindEndIR:
		c.endIRState = cmd.EndState
	case svf.KindEndDR:
		c.endDRState = cmd.EndState
	case svf.KindState:
		for _, s := range cmd.Path {
			c.goTo(s)
		}
	case svf.KindFrequency:
		if cmd.Hz != c.frequencyHz {
			c.frequencyHz = cmd.Hz
			c.bridge.SetFrequency(cmd.Hz)
		}
	case svf.KindSIR:
		c.shift(false, cmd.Scan)
	case svf.KindSDR:
		c.shift(true, cmd.Scan)
	case svf.KindRunTest:
		c.runTest(cmd)
	case svf.KindTRST:
		if err := c.bridge.SetTRST(string(cmd.TRST)); err != nil {
			c.errorCount++
		}
	case svf.KindComment, svf.KindHIR, svf.KindTIR, svf.KindHDR, svf.KindTDR,
		svf.KindPiomap, svf.KindPio, svf.KindUnknown:
		// Recognized-but-unhandled or unrecognized: no hardware effect.
		if c.verbose && c.ignored != nil {
			c.ignored(cmd)
		}
	}
}

// goTo drives the TAP to target: a no-op if already there, the
// five-TMS-ones shortcut for Reset, otherwise the TAP engine's
// shortest-path sequence packed LSB-first into a single byte and
// forwarded to the bridge's TMS-pulse primitive.
func (c *Controller) goTo(target tap.State) {
	seq, err := c.machine.GoTo(target)
	if err != nil {
		c.errorCount++
		return
	}
	if len(seq.TMS) == 0 {
		return
	}
	var bits byte
	for i, bit := range seq.TMS {
		if bit {
			bits |= 1 << uint(i)
		}
	}
	if err := c.bridge.PulseTMS(bits, len(seq.TMS)); err != nil {
		c.errorCount++
	}
}

// shift implements §4.3.3: goto the shift state, call the bridge's
// shift_data primitive, land in Exit1, goto the end state, and verify
// TDO under MASK when expected data was given.
func (c *Controller) shift(isDR bool, scan svf.ScanFields) {
	shiftState, endState := tap.IRShift, c.endIRState
	if isDR {
		shiftState, endState = tap.DRShift, c.endDRState
	}

	c.goTo(shiftState)

	tdiHex := zeroHex(scan.Length)
	if scan.TDI != nil {
		tdiHex = *scan.TDI
	}

	isRead := scan.TDO != nil
	tdoHex, err := c.bridge.ShiftData(tdiHex, scan.Length, isDR, isRead)
	if err != nil {
		c.errorCount++
		return
	}

	// shift_data already raised TMS on the wire for the final bit, which
	// the standard defines as the Exit1 transition; reconcile the
	// tracked state with a single TMS=1 clock rather than re-issuing
	// hardware traffic.
	c.machine.Clock(true)
	c.goTo(endState)

	if scan.TDO != nil {
		if !verifyTDO(tdoHex, *scan.TDO, scan.Mask, scan.Length) {
			c.errorCount++
		}
	}
}

func (c *Controller) runTest(cmd svf.Command) {
	c.goTo(tap.Idle)

	required := cmd.MinTime
	if cmd.RunCount > 0 && c.frequencyHz > 0 {
		if byCycles := float64(cmd.RunCount) / c.frequencyHz; byCycles > required {
			required = byCycles
		}
	}

	if err := c.bridge.PulseTCK(false, cmd.RunCount, time.Duration(required*float64(time.Second))); err != nil {
		c.errorCount++
	}

	c.goTo(cmd.RunEnd)
}

// verifyTDO implements the masked, nibble-wise TDO compare of §4.3.4.
func verifyTDO(received, expected string, mask *string, length int) bool {
	n := (length + 3) / 4
	if n == 0 {
		n = 1
	}
	r := leftPadHex(received, n)
	e := leftPadHex(expected, n)
	m := strings.Repeat("F", n)
	if mask != nil {
		m = leftPadHex(*mask, n)
	}

	for i := 0; i < n; i++ {
		rv, rerr := strconv.ParseUint(string(r[i]), 16, 8)
		ev, eerr := strconv.ParseUint(string(e[i]), 16, 8)
		mv, merr := strconv.ParseUint(string(m[i]), 16, 8)
		if rerr != nil || eerr != nil || merr != nil {
			return false
		}
		if rv&mv != ev&mv {
			return false
		}
	}
	return true
}

func leftPadHex(s string, n int) string {
	if len(s) >= n {
		return s[len(s)-n:]
	}
	return strings.Repeat("0", n-len(s)) + s
}
