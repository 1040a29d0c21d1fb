package svf

import (
	"strings"
	"testing"

	"github.com/svftools/svfplay/pkg/tap"
)

func parseString(t *testing.T, src string, verbose bool) *Parser {
	t.Helper()
	p := NewParser(verbose)
	if err := p.Parse(strings.NewReader(src)); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return p
}

func TestParseSimpleIDCODERead(t *testing.T) {
	src := "TRST OFF;\n" +
		"ENDIR IDLE;\n" +
		"ENDDR IDLE;\n" +
		"STATE RESET;\n" +
		"SIR 8 TDI (01);\n" +
		"SDR 32 TDI (00000000) TDO (12345678) MASK (FFFFFFFF);\n"

	p := parseString(t, src, false)
	if len(p.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", p.Warnings)
	}
	if len(p.Commands) != 6 {
		t.Fatalf("got %d commands, want 6: %v", len(p.Commands), p.Commands)
	}

	sdr := p.Commands[5]
	if sdr.Kind != KindSDR {
		t.Fatalf("commands[5].Kind = %s, want SDR", sdr.Kind)
	}
	if sdr.Scan.Length != 32 {
		t.Fatalf("SDR length = %d, want 32", sdr.Scan.Length)
	}
	if sdr.Scan.TDO == nil || *sdr.Scan.TDO != "12345678" {
		t.Fatalf("SDR TDO = %v, want 12345678", sdr.Scan.TDO)
	}
	if sdr.Scan.Mask == nil || *sdr.Scan.Mask != "FFFFFFFF" {
		t.Fatalf("SDR MASK = %v, want FFFFFFFF", sdr.Scan.Mask)
	}
}

func TestParseMultiLinePayload(t *testing.T) {
	src := "SDR 64 TDI (\n" +
		"DEADBEEF\n" +
		"CAFEF00D\n" +
		");\n"

	p := parseString(t, src, false)
	if len(p.Commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(p.Commands))
	}
	cmd := p.Commands[0]
	if cmd.Scan.TDI == nil || *cmd.Scan.TDI != "DEADBEEFCAFEF00D" {
		t.Fatalf("TDI = %v, want DEADBEEFCAFEF00D", cmd.Scan.TDI)
	}
}

func TestParseInlineCommentStripped(t *testing.T) {
	src := "STATE IDLE; ! move to idle before scanning\n"
	p := parseString(t, src, false)
	if len(p.Commands) != 1 {
		t.Fatalf("got %d commands, want 1: %v", len(p.Commands), p.Commands)
	}
	if p.Commands[0].Kind != KindState {
		t.Fatalf("Kind = %s, want STATE", p.Commands[0].Kind)
	}
	if len(p.Commands[0].Path) != 1 || p.Commands[0].Path[0] != tap.Idle {
		t.Fatalf("Path = %v, want [IDLE]", p.Commands[0].Path)
	}
}

func TestParseFullLineComment(t *testing.T) {
	src := "// this entire line is a comment\n" +
		"TRST ON;\n"
	p := parseString(t, src, false)
	if len(p.Commands) != 2 {
		t.Fatalf("got %d commands, want 2", len(p.Commands))
	}
	if p.Commands[0].Kind != KindComment {
		t.Fatalf("Kind = %s, want COMMENT", p.Commands[0].Kind)
	}
	if p.Commands[0].Text != "// this entire line is a comment" {
		t.Fatalf("Text = %q", p.Commands[0].Text)
	}
}

func TestParseRunTestWithEndstateAndMaximum(t *testing.T) {
	src := "RUNTEST 100 TCK 1.0E-3 SEC MAXIMUM 2.0E-2 SEC ENDSTATE IDLE;\n"
	p := parseString(t, src, false)
	if len(p.Commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(p.Commands))
	}
	cmd := p.Commands[0]
	if cmd.RunCount != 100 {
		t.Fatalf("RunCount = %d, want 100", cmd.RunCount)
	}
	if cmd.MinTime != 1.0e-3 {
		t.Fatalf("MinTime = %v, want 1.0e-3", cmd.MinTime)
	}
	if cmd.MaxTime == nil || *cmd.MaxTime != 2.0e-2 {
		t.Fatalf("MaxTime = %v, want 2.0e-2", cmd.MaxTime)
	}
	if cmd.RunEnd != tap.Idle {
		t.Fatalf("RunEnd = %s, want IDLE", cmd.RunEnd)
	}
}

func TestParseHardResetPath(t *testing.T) {
	src := "STATE RESET;\n"
	p := parseString(t, src, false)
	if len(p.Commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(p.Commands))
	}
	if len(p.Commands[0].Path) != 1 || p.Commands[0].Path[0] != tap.Reset {
		t.Fatalf("Path = %v, want [RESET]", p.Commands[0].Path)
	}
}

func TestParseLengthInferredFromTDI(t *testing.T) {
	src := "SDR TDI (FF);\n" // no explicit length: 2 hex digits -> 8 bits
	p := parseString(t, src, false)
	cmd := p.Commands[0]
	if cmd.Scan.Length != 8 {
		t.Fatalf("inferred Length = %d, want 8", cmd.Scan.Length)
	}
}

func TestParseUnmatchedParenWarnsInVerboseMode(t *testing.T) {
	src := "SDR 8 TDI (FF;\n"
	p := parseString(t, src, true)
	if len(p.Warnings) == 0 {
		t.Fatalf("expected a warning for unmatched '('")
	}
	if len(p.Commands) != 1 {
		t.Fatalf("command should still be emitted with defaults")
	}
}

func TestParseMalformedSubfieldFailsWithoutVerbose(t *testing.T) {
	p := NewParser(false)
	err := p.Parse(strings.NewReader("FREQUENCY notanumber;\n"))
	if err == nil {
		t.Fatalf("expected an error with verbose off")
	}
}

func TestParseUnterminatedCommandAtEOFWarns(t *testing.T) {
	src := "SDR 8 TDI (FF)" // no trailing semicolon
	p := parseString(t, src, false)
	if len(p.Warnings) == 0 {
		t.Fatalf("expected a warning about unfinished command at EOF")
	}
	if len(p.Commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(p.Commands))
	}
}

func TestParseBlankLinesSkippedOutsideAccumulation(t *testing.T) {
	src := "\n\nTRST OFF;\n\n"
	p := parseString(t, src, false)
	if len(p.Commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(p.Commands))
	}
}

func TestParseMultipleCommandsOnOneLine(t *testing.T) {
	src := "ENDIR IDLE; ENDDR IDLE;\n"
	p := parseString(t, src, false)
	if len(p.Commands) != 2 {
		t.Fatalf("got %d commands, want 2: %v", len(p.Commands), p.Commands)
	}
	if p.Commands[0].Kind != KindEndIR || p.Commands[1].Kind != KindEndDR {
		t.Fatalf("unexpected kinds: %s, %s", p.Commands[0].Kind, p.Commands[1].Kind)
	}
}
