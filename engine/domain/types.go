// Package domain defines core types and validation for the Trackside
// retrieval engine. It acts as the validation gate at pipeline entry points.
package domain

// IncidentRecord is one raw incident row after loading and normalization.
// It is transient: the ingestion pipeline consumes it immediately into a
// KnowledgePoint and never persists it.
type IncidentRecord struct {
	// Narrative is the concatenation of all narrative-bearing fields.
	// Records with an empty narrative are dropped by the loader.
	Narrative string
	// Weather is the raw weather code/string from the source row.
	Weather string
	// Damage is the reported damage amount in dollars; 0 when unparseable.
	Damage float64
}

// Statistics is the bookkeeping attached to a stored resolution. It never
// influences strategy selection.
type Statistics struct {
	AvgDelayMins int `json:"avg_delay_mins"`
	TimesUsed    int `json:"times_used"`
}

// Payload is the stored payload of a knowledge point.
type Payload struct {
	OriginalLog      string     `json:"original_log"`
	Weather          string     `json:"weather"`
	ResolutionAction string     `json:"resolution_action"`
	ResolutionDetail string     `json:"resolution_detail"`
	Statistics       Statistics `json:"statistics"`
	ImageURLs        []string   `json:"image_urls,omitempty"`
	Source           string     `json:"source,omitempty"`
	DamageAmount     float64    `json:"damage_amount,omitempty"`
	Location         string     `json:"location,omitempty"`
	ReportID         string     `json:"report_id,omitempty"`
}

// KnowledgePoint is one persisted entry of the vector collection: a
// monotonically assigned id, a unit-norm embedding whose length equals the
// collection dimension, and the payload above.
type KnowledgePoint struct {
	ID      uint64
	Vector  []float32
	Payload Payload
}

// SourceLiveReport tags points appended by the live service, distinguishing
// them from bulk-ingested data.
const SourceLiveReport = "live_report"

// MaxLogLength is the payload truncation limit for the original narrative.
const MaxLogLength = 500

// TruncateLog shortens a narrative to MaxLogLength for storage.
func TruncateLog(narrative string) string {
	if len(narrative) <= MaxLogLength {
		return narrative
	}
	return narrative[:MaxLogLength]
}
