package domain

import "strings"

// validActions is the closed set of resolution action codes.
var validActions = map[string]bool{
	"REVERSE_MANEUVER":    true,
	"REROUTE_FAST_TRACK":  true,
	"SINGLE_LINE_WORKING": true,
	"BUS_BRIDGE":          true,
}

// ValidateRecord checks an IncidentRecord before it enters the pipeline.
func ValidateRecord(rec IncidentRecord) error {
	if strings.TrimSpace(rec.Narrative) == "" {
		return NewValidationError("narrative", rec.Narrative, ErrEmptyNarrative)
	}
	if rec.Damage < 0 {
		return NewValidationError("damage", "", ErrNegativeDamage)
	}
	return nil
}

// ValidateResolutionAction checks a caller-supplied action code against the
// closed strategy set. The live append endpoint records human-confirmed
// resolutions, so the action arrives from outside rather than the heuristic.
func ValidateResolutionAction(action string) error {
	if !validActions[action] {
		return NewValidationError("resolution_action", action, ErrInvalidResolution)
	}
	return nil
}

// ValidatePoint checks a KnowledgePoint against the collection dimension
// before it is written.
func ValidatePoint(p KnowledgePoint, dim int) error {
	if len(p.Vector) != dim {
		return NewValidationError("vector", "", ErrDimensionMismatch)
	}
	if strings.TrimSpace(p.Payload.OriginalLog) == "" {
		return NewValidationError("original_log", "", ErrEmptyNarrative)
	}
	return nil
}
