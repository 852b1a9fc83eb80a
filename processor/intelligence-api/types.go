package intelapi

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/message"

	"github.com/33prime/aios-req-engine-sub007/frame"
)

// CompileRequest asks for a compiled prompt for one chat turn.
// Published to the intel.compile.request subject.
type CompileRequest struct {
	// RequestID correlates the response; generated if empty.
	RequestID string `json:"request_id,omitempty"`

	// ProjectID scopes every lookup.
	ProjectID string `json:"project_id"`

	// ProjectName is the display name, used verbatim in the snapshot.
	ProjectName string `json:"project_name,omitempty"`

	// Query is the user's message for this turn.
	Query string `json:"query"`

	// Intent is the classified intent of the turn.
	Intent string `json:"intent,omitempty"`

	// PagePath is the client route the user is on.
	PagePath string `json:"page_path,omitempty"`

	// FocusedEntityID is the entity the user has open, if any.
	FocusedEntityID string `json:"focused_entity_id,omitempty"`

	// FocusedEntityType is the kind of the focused entity.
	FocusedEntityType string `json:"focused_entity_type,omitempty"`

	// MaxTokens bounds the evidence budget in the dynamic block.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompileRequestType is the message type for compile requests.
var CompileRequestType = message.Type{
	Domain:   "intel",
	Category: "compile",
	Version:  "v1",
}

// Schema returns the message type for this payload.
func (p *CompileRequest) Schema() message.Type {
	return CompileRequestType
}

// Validate validates the payload.
func (p *CompileRequest) Validate() error {
	if p.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if p.Query == "" {
		return fmt.Errorf("query is required")
	}
	return nil
}

// MarshalJSON marshals the payload to JSON.
func (p *CompileRequest) MarshalJSON() ([]byte, error) {
	type Alias CompileRequest
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the payload from JSON.
func (p *CompileRequest) UnmarshalJSON(data []byte) error {
	type Alias CompileRequest
	return json.Unmarshal(data, (*Alias)(p))
}

// CompileResponse is the compiled prompt for one turn.
// Published to intel.compiled.{request_id} and mirrored into the
// response KV bucket under the request ID.
type CompileResponse struct {
	RequestID string `json:"request_id"`
	ProjectID string `json:"project_id"`

	CachedBlock   string               `json:"cached_block,omitempty"`
	DynamicBlock  string               `json:"dynamic_block,omitempty"`
	RetrievalPlan frame.RetrievalPlan  `json:"retrieval_plan"`
	ActiveFrame   frame.CognitiveFrame `json:"active_frame"`

	ChunkCount  int `json:"chunk_count"`
	EntityCount int `json:"entity_count"`
	BeliefCount int `json:"belief_count"`

	// Error carries a user-facing failure description instead of a
	// prompt. Degraded sources never set it; only invalid requests do.
	Error string `json:"error,omitempty"`
}

// CompileResponseType is the message type for compile responses.
var CompileResponseType = message.Type{
	Domain:   "intel",
	Category: "compiled",
	Version:  "v1",
}

// Schema returns the message type for this payload.
func (p *CompileResponse) Schema() message.Type {
	return CompileResponseType
}

// Validate validates the payload.
func (p *CompileResponse) Validate() error {
	if p.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	return nil
}

// MarshalJSON marshals the payload to JSON.
func (p *CompileResponse) MarshalJSON() ([]byte, error) {
	type Alias CompileResponse
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the payload from JSON.
func (p *CompileResponse) UnmarshalJSON(data []byte) error {
	type Alias CompileResponse
	return json.Unmarshal(data, (*Alias)(p))
}
