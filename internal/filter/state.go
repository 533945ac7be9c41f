package filter

// State holds the global selections and one isolated selection set per
// chart identity.
type State struct {
	Global Selections
	Charts map[string]Selections
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		Global: Selections{},
		Charts: map[string]Selections{},
	}
}

// SetGlobal records a global selection. All clears it.
func (s *State) SetGlobal(column, value string) {
	set(s.Global, column, value)
}

// SetChart records a selection for one chart. All clears it.
func (s *State) SetChart(id, column, value string) {
	sel, ok := s.Charts[id]
	if !ok {
		sel = Selections{}
		s.Charts[id] = sel
	}
	set(sel, column, value)
	if len(sel) == 0 {
		delete(s.Charts, id)
	}
}

// Chart returns the selections for one chart. The result may be nil.
func (s *State) Chart(id string) Selections {
	return s.Charts[id]
}

// Reset clears every selection.
func (s *State) Reset() {
	s.Global = Selections{}
	s.Charts = map[string]Selections{}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := &State{
		Global: s.Global.Clone(),
		Charts: make(map[string]Selections, len(s.Charts)),
	}
	for id, sel := range s.Charts {
		out.Charts[id] = sel.Clone()
	}
	return out
}

func set(sel Selections, column, value string) {
	if value == "" || value == All {
		delete(sel, column)
		return
	}
	sel[column] = value
}
