// Package svf parses the Serial Vector Format text stream used to drive
// IEEE 1149.1 JTAG targets into an ordered list of typed command
// records, tolerating SVF's awkward multi-line continuation and
// positional/keyword parameter hybrid grammar.
package svf

import (
	"fmt"

	"github.com/svftools/svfplay/pkg/tap"
)

// Kind identifies which arm of the Command tagged variant is populated.
type Kind uint8

const (
	KindComment Kind = iota
	KindEndIR
	KindEndDR
	KindState
	KindFrequency
	KindHIR
	KindTIR
	KindHDR
	KindTDR
	KindSIR
	KindSDR
	KindRunTest
	KindTRST
	KindPiomap
	KindPio
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "COMMENT"
	case KindEndIR:
		return "ENDIR"
	case KindEndDR:
		return "ENDDR"
	case KindState:
		return "STATE"
	case KindFrequency:
		return "FREQUENCY"
	case KindHIR:
		return "HIR"
	case KindTIR:
		return "TIR"
	case KindHDR:
		return "HDR"
	case KindTDR:
		return "TDR"
	case KindSIR:
		return "SIR"
	case KindSDR:
		return "SDR"
	case KindRunTest:
		return "RUNTEST"
	case KindTRST:
		return "TRST"
	case KindPiomap:
		return "PIOMAP"
	case KindPio:
		return "PIO"
	default:
		return "UNKNOWN"
	}
}

// TRSTMode is the set of TRST drive states recognized by the SVF TRST
// command.
type TRSTMode string

const (
	TRSTOn     TRSTMode = "ON"
	TRSTOff    TRSTMode = "OFF"
	TRSTZ      TRSTMode = "Z"
	TRSTAbsent TRSTMode = "ABSENT"
)

// ScanFields holds the length/TDI/TDO/MASK/SMASK parameter set shared by
// SIR, SDR, HIR, TIR, HDR and TDR. Hex payload fields are nil when the
// keyword was absent from the source command.
type ScanFields struct {
	Length int
	TDI    *string
	TDO    *string
	Mask   *string
	SMask  *string
}

// Command is a tagged variant with one arm per recognized SVF command
// kind. Only the fields relevant to Kind are meaningful; the rest are
// zero values. Every command carries its 1-based source line number and
// a verbatim copy of the original source text for diagnostics.
type Command struct {
	Kind Kind
	Line int
	Raw  string

	// KindComment
	Text string

	// KindEndIR, KindEndDR
	EndState tap.State

	// KindState
	Path []tap.State

	// KindFrequency
	Hz float64

	// KindSIR, KindSDR, KindHIR, KindTIR, KindHDR, KindTDR
	Scan ScanFields

	// KindRunTest
	RunCount  int
	MinTime   float64
	MaxTime   *float64
	HasMaxVal bool
	RunEnd    tap.State

	// KindTRST
	TRST TRSTMode

	// KindPiomap, KindUnknown
	Keyword string
	Params  []string
}

func (c Command) String() string {
	return fmt.Sprintf("%s (line %d): %s", c.Kind, c.Line, c.Raw)
}

// Warning records a recoverable per-command parse problem: a bad numeric
// literal, an unmatched parenthesis, or an unknown state name. The
// command that produced it is still emitted, populated with defaults.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// Error reports an unrecoverable parse failure: I/O failure reading the
// source, or (when verbose is off) a malformed token that would
// otherwise have degraded to a Warning.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("svf: line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("svf: %s", e.Message)
}
