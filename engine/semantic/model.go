package semantic

import "github.com/TrackSideAI/trackside-mvp/engine/domain"

// Hit is a single similarity-search match.
type Hit struct {
	ID      uint64         `json:"id"`
	Score   float32        `json:"score"`
	Payload domain.Payload `json:"payload"`
}

// CollectionInfo describes the live collection.
type CollectionInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Points    uint64 `json:"points"`
}
