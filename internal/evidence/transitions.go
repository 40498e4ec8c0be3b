package evidence

// allowedTransitions is the full lifecycle: pending -> processing -> verified|error.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusVerified, StatusError},
	StatusVerified:   {},
	StatusError:      {},
}

// CanTransition checks if a status transition is allowed.
func CanTransition(from, to Status) bool {
	allowed, exists := allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable in one step from from.
func AllowedTransitions(from Status) []Status {
	allowed, exists := allowedTransitions[from]
	if !exists {
		return []Status{}
	}
	return allowed
}
