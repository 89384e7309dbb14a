package model

import (
	"errors"
	"fmt"
	"strings"
)

// Action is an interaction kind as it appears in the interactions table.
type Action string

const (
	Followed  Action = "Followed"
	Like      Action = "Like"
	Love      Action = "Love"
	Commented Action = "Commented"
	Replied   Action = "Replied"
)

// ErrUnknownActionKind is matched by every UnknownActionError.
var ErrUnknownActionKind = errors.New("unknown action kind")

// UnknownActionError names the action that has no strength.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action kind %q", e.Action)
}

func (e *UnknownActionError) Is(target error) bool { return target == ErrUnknownActionKind }

var defaultStrengths = map[Action]float64{
	Followed:  1.0,
	Like:      1.0,
	Love:      2.0,
	Commented: 4.0,
	Replied:   4.0,
}

// StrengthTable maps an action to the weight it contributes to popularity.
type StrengthTable map[Action]float64

// DefaultStrengths returns a fresh copy of the built-in strength table.
func DefaultStrengths() StrengthTable {
	out := make(StrengthTable, len(defaultStrengths))
	for k, v := range defaultStrengths {
		out[k] = v
	}
	return out
}

// StrengthsFromConfig overlays config keys on the default table. Actions the
// config does not mention keep their default weight.
func StrengthsFromConfig(m map[string]float64) (StrengthTable, error) {
	out := DefaultStrengths()
	for k, v := range m {
		a, err := ParseAction(k)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("negative strength %v for %s", v, a)
		}
		out[a] = v
	}
	return out, nil
}

// Strength looks up an action's weight.
func (t StrengthTable) Strength(a Action) (float64, error) {
	w, ok := t[a]
	if !ok {
		return 0, &UnknownActionError{Action: string(a)}
	}
	return w, nil
}

// ParseAction accepts the canonical spelling in any case.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	for a := range defaultStrengths {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", &UnknownActionError{Action: s}
}
