// Package resolution maps an incident narrative and damage figure to one of
// four canned resolution strategies. Selection is a fixed-priority decision
// list, not a classifier: identical inputs always yield the identical
// strategy.
package resolution

import "strings"

// Strategy is one of the four canned incident-response actions.
type Strategy struct {
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	BaseDelay int    `json:"base_delay_mins"`
}

// The full strategy set. These are constants in all but the Go keyword sense;
// they are never created or mutated at runtime.
var (
	ReverseManeuver = Strategy{
		Action:    "REVERSE_MANEUVER",
		Detail:    "Initiated retrograde movement to nearest switch.",
		BaseDelay: 45,
	}
	RerouteFastTrack = Strategy{
		Action:    "REROUTE_FAST_TRACK",
		Detail:    "Diverted following traffic to High-Speed Line B.",
		BaseDelay: 10,
	}
	SingleLineWorking = Strategy{
		Action:    "SINGLE_LINE_WORKING",
		Detail:    "Established bidirectional flow on remaining open track.",
		BaseDelay: 25,
	}
	BusBridge = Strategy{
		Action:    "BUS_BRIDGE",
		Detail:    "Track impassable. Deployed emergency bus fleet.",
		BaseDelay: 120,
	}
)

// All lists every strategy.
var All = []Strategy{ReverseManeuver, RerouteFastTrack, SingleLineWorking, BusBridge}

// rule is one entry of the decision list: if any keyword appears in the
// upper-cased narrative, pick returns the strategy.
type rule struct {
	keywords []string
	pick     func(damage float64) Strategy
}

var rules = []rule{
	{[]string{"DERAILED", "DERAIL"}, func(float64) Strategy { return SingleLineWorking }},
	{[]string{"SWITCH", "TURNOUT"}, func(float64) Strategy { return ReverseManeuver }},
	{[]string{"COLLISION", "STRUCK"}, func(float64) Strategy { return SingleLineWorking }},
	{[]string{"SIGNAL", "CROSSING"}, func(float64) Strategy { return RerouteFastTrack }},
	{[]string{"OBSTRUCTION", "DEBRIS", "OBJECT"}, func(damage float64) Strategy {
		if damage > 50000 {
			return SingleLineWorking
		}
		return RerouteFastTrack
	}},
	{[]string{"FIRE", "SMOKE"}, func(float64) Strategy { return BusBridge }},
	{[]string{"WEATHER", "FLOOD", "SNOW"}, func(float64) Strategy { return RerouteFastTrack }},
	{[]string{"MECHANICAL", "BRAKE", "ENGINE"}, func(float64) Strategy { return ReverseManeuver }},
	{[]string{"TRESPASS", "PERSON", "PEDESTRIAN"}, func(float64) Strategy { return SingleLineWorking }},
}

// SelectStrategy picks the resolution strategy for a narrative and damage
// amount. Severe damage trumps everything; after that the first keyword rule
// that matches wins; otherwise damage bands decide.
func SelectStrategy(narrative string, damage float64) Strategy {
	if damage > 100000 {
		return BusBridge
	}

	text := strings.ToUpper(narrative)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.pick(damage)
			}
		}
	}

	switch {
	case damage > 50000:
		return SingleLineWorking
	case damage > 10000:
		return RerouteFastTrack
	default:
		return ReverseManeuver
	}
}
