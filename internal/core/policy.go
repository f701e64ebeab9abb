package core

import "strings"

type statusMachine struct {
	valid       map[Status]struct{}
	transitions map[Status]map[Status]struct{}
}

var applicationMachine = statusMachine{
	valid: toSet(StatusPending, StatusApproved, StatusDeclined, StatusCancelled, StatusCompleted),
	transitions: map[Status]map[Status]struct{}{
		StatusPending:   toSet(StatusApproved, StatusDeclined, StatusCancelled),
		StatusApproved:  toSet(StatusCancelled, StatusCompleted),
		StatusDeclined:  {},
		StatusCancelled: {},
		StatusCompleted: {},
	},
}

// orderedStatuses fixes the presentation order used by Statuses and LegalTargets.
var orderedStatuses = []Status{StatusPending, StatusApproved, StatusDeclined, StatusCancelled, StatusCompleted}

// IsLegalTransition reports whether an application in current may move to
// requested. Self-transitions and unknown statuses are never legal.
func IsLegalTransition(current, requested Status) bool {
	targets, ok := applicationMachine.transitions[current]
	if !ok {
		return false
	}
	_, ok = targets[requested]
	return ok
}

// ParseStatus recognises one of the canonical status literals, ignoring case
// and surrounding whitespace.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := applicationMachine.valid[status]; !ok {
		return "", false
	}
	return status, true
}

// IsTerminal reports whether status has no outgoing transitions.
func IsTerminal(status Status) bool {
	targets, ok := applicationMachine.transitions[status]
	return ok && len(targets) == 0
}

// LegalTargets lists the statuses reachable from status in one transition.
func LegalTargets(status Status) []Status {
	var out []Status
	for _, candidate := range orderedStatuses {
		if IsLegalTransition(status, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// Statuses returns every known status.
func Statuses() []Status {
	return append([]Status(nil), orderedStatuses...)
}

func toSet(values ...Status) map[Status]struct{} {
	set := make(map[Status]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
