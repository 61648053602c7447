// Package statemachine is the sole source of truth for which job
// status may follow which: a transition table per job
// kind, plus the identification of pause states that can only be left
// by an explicit external confirmation command.
package statemachine

import "fmt"

// Kind mirrors ent's job.kind enum values without importing the
// generated package, so this package stays usable from contexts that
// only have the bare string (e.g. a CLI confirm command).
type Kind string

const (
	KindModuleExtraction Kind = "module_extraction"
	KindSOA              Kind = "soa"
	KindEligibility      Kind = "eligibility"
)

// transitions maps each kind's states to the set of states directly
// reachable from it. "failed" is reachable from every non-terminal
// state for every kind; CanTransition allows it directly rather than
// it being repeated in every table.
var transitions = map[Kind]map[string][]string{
	KindModuleExtraction: {
		"queued":                {"running"},
		"running":               {"completed", "completed_with_errors", "failed"},
		"completed":             {},
		"completed_with_errors": {},
		"failed":                {},
	},
	KindSOA: {
		"detecting_pages":             {"awaiting_page_confirmation"},
		"awaiting_page_confirmation":  {"extracting"},
		"extracting":                  {"saving"},
		"saving":                      {"analyzing_merges"},
		"analyzing_merges":            {"awaiting_merge_confirmation"},
		"awaiting_merge_confirmation": {"interpreting"},
		"interpreting":                {"completed"},
		"completed":                   {},
		"failed":                      {},
	},
	KindEligibility: {
		"detecting_sections":            {"awaiting_section_confirmation"},
		"awaiting_section_confirmation": {"extracting"},
		"extracting":                    {"interpreting"},
		"interpreting":                  {"validating"},
		"validating":                    {"completed"},
		"completed":                     {},
		"failed":                        {},
	},
}

// pauseStates are states only left by an explicit external command
// supplying the confirmed payload rather than by pipeline progress.
var pauseStates = map[Kind]map[string]bool{
	KindSOA: {
		"awaiting_page_confirmation":  true,
		"awaiting_merge_confirmation": true,
	},
	KindEligibility: {
		"awaiting_section_confirmation": true,
	},
}

// ErrUnknownKind is returned when kind has no registered transition table.
var ErrUnknownKind = fmt.Errorf("statemachine: unknown job kind")

// ErrInvalidTransition is returned when from cannot reach to directly.
type ErrInvalidTransition struct {
	Kind Kind
	From string
	To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("statemachine: %s job cannot transition %q -> %q", e.Kind, e.From, e.To)
}

// CanTransition reports whether kind's table allows from -> to. "failed"
// is always a valid destination from any known non-terminal state.
func CanTransition(kind Kind, from, to string) (bool, error) {
	table, ok := transitions[kind]
	if !ok {
		return false, ErrUnknownKind
	}
	next, ok := table[from]
	if !ok {
		return false, fmt.Errorf("statemachine: %s job has no known state %q", kind, from)
	}
	if to == "failed" && len(next) > 0 {
		return true, nil
	}
	for _, candidate := range next {
		if candidate == to {
			return true, nil
		}
	}
	return false, nil
}

// Validate returns ErrInvalidTransition when from -> to is not allowed.
func Validate(kind Kind, from, to string) error {
	ok, err := CanTransition(kind, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return &ErrInvalidTransition{Kind: kind, From: from, To: to}
	}
	return nil
}

// IsPauseState reports whether status is a pause state for kind — a
// state the pipeline worker will not advance out of on its own.
func IsPauseState(kind Kind, status string) bool {
	return pauseStates[kind][status]
}

// InitialState returns the first state of kind's pipeline.
func InitialState(kind Kind) (string, error) {
	switch kind {
	case KindModuleExtraction:
		return "queued", nil
	case KindSOA:
		return "detecting_pages", nil
	case KindEligibility:
		return "detecting_sections", nil
	default:
		return "", ErrUnknownKind
	}
}

// IsTerminal reports whether status has no outgoing transitions for kind.
func IsTerminal(kind Kind, status string) bool {
	table, ok := transitions[kind]
	if !ok {
		return false
	}
	next, ok := table[status]
	if !ok {
		return false
	}
	return len(next) == 0
}
