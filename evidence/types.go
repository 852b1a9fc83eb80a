// Package evidence defines the request-scoped evidence fragments the
// retrieval pipeline assembles: content chunks, ranked entity matches, and
// confidence-tagged belief assertions. Nothing here is persisted; the types
// live for one retrieval call.
package evidence

// Source tags where a piece of evidence came from.
const (
	SourceVector         = "vector"
	SourceGraphExpansion = "graph_expansion"
)

// Chunk is one evidence fragment from the content store.
type Chunk struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id,omitempty"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Source     string         `json:"source,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// EntityMatch is a ranked semantic entity match.
type EntityMatch struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Similarity  float64 `json:"similarity"`
	Source      string  `json:"source,omitempty"`
}

// Stance classifies a belief relative to the query topic.
const (
	StanceSupporting    = "supporting"
	StanceContradicting = "contradicting"
	StanceNeutral       = "neutral"
)

// Belief is a confidence-tagged memory assertion.
type Belief struct {
	ID         string  `json:"id"`
	Statement  string  `json:"statement"`
	Confidence float64 `json:"confidence"`
	Stance     string  `json:"stance,omitempty"`
	Similarity float64 `json:"similarity"`
}

// RelatedEntity is a graph neighbor of an entity along with how much
// evidence the two share.
type RelatedEntity struct {
	EntityID     string `json:"entity_id"`
	EntityType   string `json:"entity_type"`
	EntityName   string `json:"entity_name"`
	SharedChunks int    `json:"shared_chunks"`
}

// Neighborhood is the graph query result for one seed entity.
type Neighborhood struct {
	Entity         EntityMatch     `json:"entity"`
	EvidenceChunks []Chunk         `json:"evidence_chunks,omitempty"`
	Related        []RelatedEntity `json:"related,omitempty"`
}
