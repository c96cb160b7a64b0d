package gamestate

// Phase is the shared app state every client renders from.
type Phase string

const (
	PhaseUnsetup Phase = "unsetup"
	PhaseSetup   Phase = "setup"
	PhaseStarted Phase = "started"
	PhaseEnded   Phase = "ended"
)

var transitions = map[Phase][]Phase{
	PhaseUnsetup: {PhaseSetup},
	PhaseSetup:   {PhaseStarted},
	PhaseStarted: {PhaseEnded},
	PhaseEnded:   {PhaseSetup},
}

func (p Phase) String() string {
	return string(p)
}

func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}

// CanTransitionTo reports whether target may follow p. Writing the current
// phase again is always allowed since several clients may observe the same
// event and race to record it.
func (p Phase) CanTransitionTo(target Phase) bool {
	if !target.Valid() {
		return false
	}
	if p == target {
		return true
	}
	for _, next := range transitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

func containsPhase(list []Phase, p Phase) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
