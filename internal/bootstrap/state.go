package bootstrap

import (
	"fmt"
	"time"
)

// State is a bootstrap phase. Phases only move forward.
type State int

const (
	Uninitialized State = iota
	FilesLoaded
	EnvironmentMerged
	RemoteSecretsMerged
	RemoteSecretsSkipped
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case FilesLoaded:
		return "FilesLoaded"
	case EnvironmentMerged:
		return "EnvironmentMerged"
	case RemoteSecretsMerged:
		return "RemoteSecretsMerged"
	case RemoteSecretsSkipped:
		return "RemoteSecretsSkipped"
	case Ready:
		return "Ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var allowedTransitions = map[State][]State{
	Uninitialized:        {FilesLoaded},
	FilesLoaded:          {EnvironmentMerged},
	EnvironmentMerged:    {RemoteSecretsMerged, RemoteSecretsSkipped},
	RemoteSecretsMerged:  {Ready},
	RemoteSecretsSkipped: {Ready},
}

// Transition records one state change.
type Transition struct {
	From   State
	To     State
	At     time.Time
	Reason string
}

type machine struct {
	state   State
	history []Transition
	now     func() time.Time
}

func (m *machine) advance(to State, reason string) error {
	for _, next := range allowedTransitions[m.state] {
		if next == to {
			m.history = append(m.history, Transition{From: m.state, To: to, At: m.now(), Reason: reason})
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid bootstrap transition %s -> %s", m.state, to)
}
