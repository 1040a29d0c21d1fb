// Package tap implements the IEEE 1149.1 Test Access Port state machine:
// the 16-state graph every JTAG target walks, plus shortest-path TMS
// sequencing to drive it from any state to any other.
package tap

import "fmt"

// State is one of the 16 standard JTAG TAP states, plus the Unknown
// sentinel returned when a name fails to resolve.
type State uint8

const (
	Reset State = iota
	Idle
	DRSelect
	DRCapture
	DRShift
	DRExit1
	DRPause
	DRExit2
	DRUpdate
	IRSelect
	IRCapture
	IRShift
	IRExit1
	IRPause
	IRExit2
	IRUpdate
	Unknown
)

var stateNames = map[State]string{
	Reset:     "RESET",
	Idle:      "IDLE",
	DRSelect:  "DRSELECT",
	DRCapture: "DRCAPTURE",
	DRShift:   "DRSHIFT",
	DRExit1:   "DREXIT1",
	DRPause:   "DRPAUSE",
	DRExit2:   "DREXIT2",
	DRUpdate:  "DRUPDATE",
	IRSelect:  "IRSELECT",
	IRCapture: "IRCAPTURE",
	IRShift:   "IRSHIFT",
	IRExit1:   "IREXIT1",
	IRPause:   "IRPAUSE",
	IRExit2:   "IREXIT2",
	IRUpdate:  "IRUPDATE",
	Unknown:   "UNKNOWN",
}

var namesToState = func() map[string]State {
	m := make(map[string]State, len(stateNames))
	for s, n := range stateNames {
		m[n] = s
	}
	return m
}()

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

// FromName resolves an upper-cased SVF state token to a State. Names are
// matched case-insensitively with an optional trailing semicolon
// stripped; anything unrecognized yields Unknown.
func FromName(token string) State {
	for len(token) > 0 && token[len(token)-1] == ';' {
		token = token[:len(token)-1]
	}
	if s, ok := namesToState[toUpper(token)]; ok {
		return s
	}
	return Unknown
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// Sequence captures the TMS drive pattern (LSB = first bit applied) and
// the sequence of states visited while applying it to the TAP.
type Sequence struct {
	TMS    []bool
	States []State
}

type stateTransitions struct {
	onZero State
	onOne  State
}

var transitions = map[State]stateTransitions{
	Reset:     {onZero: Idle, onOne: Reset},
	Idle:      {onZero: Idle, onOne: DRSelect},
	DRSelect:  {onZero: DRCapture, onOne: IRSelect},
	DRCapture: {onZero: DRShift, onOne: DRExit1},
	DRShift:   {onZero: DRShift, onOne: DRExit1},
	DRExit1:   {onZero: DRPause, onOne: DRUpdate},
	DRPause:   {onZero: DRPause, onOne: DRExit2},
	DRExit2:   {onZero: DRShift, onOne: DRUpdate},
	DRUpdate:  {onZero: Idle, onOne: DRSelect},
	IRSelect:  {onZero: IRCapture, onOne: Reset},
	IRCapture: {onZero: IRShift, onOne: IRExit1},
	IRShift:   {onZero: IRShift, onOne: IRExit1},
	IRExit1:   {onZero: IRPause, onOne: IRUpdate},
	IRPause:   {onZero: IRPause, onOne: IRExit2},
	IRExit2:   {onZero: IRShift, onOne: IRUpdate},
	IRUpdate:  {onZero: Idle, onOne: DRSelect},
}

// NextState returns the next TAP state after clocking TCK with the given
// TMS value. It panics if current is not one of the 16 defined states
// (in particular, Unknown); the engine must never be asked to move from
// an unresolved state.
func NextState(current State, tms bool) State {
	row, ok := transitions[current]
	if !ok {
		panic(fmt.Sprintf("tap: unhandled state %s", current))
	}
	if tms {
		return row.onOne
	}
	return row.onZero
}

// Machine tracks TAP controller state locally. It performs no I/O;
// callers forward the TMS sequences it produces to a hardware bridge
// separately.
type Machine struct {
	state State
}

// NewMachine creates a TAP state machine initialized to Reset.
func NewMachine() *Machine {
	return &Machine{state: Reset}
}

// State reports the current TAP state tracked by the machine.
func (m *Machine) State() State {
	return m.state
}

// Clock advances the machine one TCK cycle with the given TMS bit and
// returns the new state.
func (m *Machine) Clock(tms bool) State {
	m.state = NextState(m.state, tms)
	return m.state
}

// HardReset applies the IEEE-recommended five consecutive TMS=1 cycles,
// which reach Reset from any state regardless of the transition table.
// It returns the sequence for convenience so it can be forwarded to a
// hardware bridge.
func (m *Machine) HardReset() Sequence {
	seq := Sequence{
		TMS:    make([]bool, 5),
		States: make([]State, 6),
	}
	seq.States[0] = m.state
	for i := 0; i < 5; i++ {
		seq.TMS[i] = true
		seq.States[i+1] = m.Clock(true)
	}
	return seq
}

// GoTo computes the minimal TMS sequence from the current state to
// target, applies it to the machine, and returns it. Reset targets
// always use the HardReset shortcut rather than the shortest-path table
// walk.
func (m *Machine) GoTo(target State) (Sequence, error) {
	if m.state == target {
		return Sequence{States: []State{m.state}}, nil
	}
	if target == Reset {
		return m.HardReset(), nil
	}
	path, err := ShortestPath(m.state, target)
	if err != nil {
		return Sequence{}, err
	}
	for _, bit := range path.TMS {
		m.Clock(bit)
	}
	return path, nil
}

// ShortestPath runs a breadth-first search over the 16-state transition
// graph, expanding TMS=0 before TMS=1 at each node, so ties between
// equal-length paths resolve toward the all-zero pattern. from and to
// must both be one of the 16 defined states; Unknown is rejected.
func ShortestPath(from, to State) (Sequence, error) {
	if _, ok := transitions[from]; !ok {
		return Sequence{}, fmt.Errorf("tap: invalid start state %s", from)
	}
	if _, ok := transitions[to]; !ok {
		return Sequence{}, fmt.Errorf("tap: invalid target state %s", to)
	}
	if from == to {
		return Sequence{States: []State{from}}, nil
	}

	type node struct {
		state  State
		tms    []bool
		states []State
	}

	queue := []node{{state: from, states: []State{from}}}
	visited := map[State]struct{}{from: {}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		candidates := [...]struct {
			bit  bool
			next State
		}{
			{bit: false, next: NextState(cur.state, false)},
			{bit: true, next: NextState(cur.state, true)},
		}

		for _, c := range candidates {
			if _, seen := visited[c.next]; seen {
				continue
			}

			tms := append(append([]bool{}, cur.tms...), c.bit)
			states := append(append([]State{}, cur.states...), c.next)

			if c.next == to {
				return Sequence{TMS: tms, States: states}, nil
			}

			visited[c.next] = struct{}{}
			queue = append(queue, node{state: c.next, tms: tms, states: states})
		}
	}

	return Sequence{}, fmt.Errorf("tap: no path from %s to %s", from, to)
}
