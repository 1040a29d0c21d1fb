package tap

import "testing"

func TestNextStateTable(t *testing.T) {
	type transition struct {
		start State
		tms   bool
		end   State
	}

	cases := []transition{
		{Reset, false, Idle},
		{Reset, true, Reset},
		{Idle, true, DRSelect},
		{DRSelect, false, DRCapture},
		{DRShift, true, DRExit1},
		{DRExit2, false, DRShift},
		{IRSelect, true, Reset},
		{IRCapture, false, IRShift},
		{IRPause, true, IRExit2},
		{IRExit2, true, IRUpdate},
	}

	for _, tc := range cases {
		got := NextState(tc.start, tc.tms)
		if got != tc.end {
			t.Fatalf("NextState(%s, %v) = %s, want %s", tc.start, tc.tms, got, tc.end)
		}
	}
}

func TestNextStateFromUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic clocking from Unknown")
		}
	}()
	NextState(Unknown, false)
}

func TestFromName(t *testing.T) {
	cases := map[string]State{
		"idle":     Idle,
		"IDLE":     Idle,
		"IRPAUSE;": IRPause,
		"DRShift":  DRShift,
		"bogus":    Unknown,
	}
	for in, want := range cases {
		if got := FromName(in); got != want {
			t.Fatalf("FromName(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestMachineReset(t *testing.T) {
	m := NewMachine()
	// Move out of reset to ensure HardReset actually travels back.
	m.Clock(false) // -> Idle
	if m.State() != Idle {
		t.Fatalf("State() = %s, want %s", m.State(), Idle)
	}

	seq := m.HardReset()

	if len(seq.TMS) != 5 {
		t.Fatalf("HardReset sequence length = %d, want 5", len(seq.TMS))
	}
	if m.State() != Reset {
		t.Fatalf("State after reset = %s, want %s", m.State(), Reset)
	}
	if seq.States[len(seq.States)-1] != Reset {
		t.Fatalf("final sequence state = %s, want %s", seq.States[len(seq.States)-1], Reset)
	}
}

func TestGoToProducesShortestPattern(t *testing.T) {
	m := NewMachine()
	// Move into Idle so GoTo has to traverse more than one edge.
	m.Clock(false)

	path, err := m.GoTo(IRShift)
	if err != nil {
		t.Fatalf("GoTo returned error: %v", err)
	}

	wantBits := []bool{true, true, false, false}
	if len(path.TMS) != len(wantBits) {
		t.Fatalf("GoTo length = %d, want %d", len(path.TMS), len(wantBits))
	}
	for i, want := range wantBits {
		if path.TMS[i] != want {
			t.Fatalf("path bit %d = %v, want %v", i, path.TMS[i], want)
		}
	}
	if m.State() != IRShift {
		t.Fatalf("State() = %s, want %s", m.State(), IRShift)
	}

	// Go back to Idle to ensure BFS works from the IR path too.
	if _, err := m.GoTo(Idle); err != nil {
		t.Fatalf("GoTo Idle returned error: %v", err)
	}
	if m.State() != Idle {
		t.Fatalf("State() = %s, want %s", m.State(), Idle)
	}
}

func TestGoToNoOpWhenAlreadyAtTarget(t *testing.T) {
	m := NewMachine()
	path, err := m.GoTo(Reset)
	if err != nil {
		t.Fatalf("GoTo returned error: %v", err)
	}
	if len(path.TMS) != 0 {
		t.Fatalf("expected no-op sequence, got %d bits", len(path.TMS))
	}
}

func TestShortestPathReachesEveryState(t *testing.T) {
	all := []State{
		Reset, Idle, DRSelect, DRCapture, DRShift, DRExit1, DRPause, DRExit2, DRUpdate,
		IRSelect, IRCapture, IRShift, IRExit1, IRPause, IRExit2, IRUpdate,
	}
	for _, from := range all {
		for _, to := range all {
			seq, err := ShortestPath(from, to)
			if err != nil {
				t.Fatalf("ShortestPath(%s, %s) error: %v", from, to, err)
			}
			if len(seq.TMS) > 6 {
				t.Fatalf("ShortestPath(%s, %s) length %d exceeds diameter bound", from, to, len(seq.TMS))
			}
			cur := from
			for _, bit := range seq.TMS {
				cur = NextState(cur, bit)
			}
			if from != to && cur != to {
				t.Fatalf("ShortestPath(%s, %s) TMS %v lands on %s", from, to, seq.TMS, cur)
			}
		}
	}
}
