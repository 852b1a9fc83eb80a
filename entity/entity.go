// Package entity defines the domain records the intelligence core operates on.
// Entities are semantically typed bags of fields scoped to a project; the core
// only interprets a small set of well-known fields and treats the rest as opaque.
package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type identifies the kind of an entity.
type Type string

const (
	TypeFeature          Type = "feature"
	TypePersona          Type = "persona"
	TypeWorkflow         Type = "workflow"
	TypeBusinessDriver   Type = "business_driver"
	TypeSolutionFlowStep Type = "solution_flow_step"
	TypeUnlock           Type = "unlock"
	TypeStakeholder      Type = "stakeholder"
)

// KnownTypes lists every entity type the core persists.
var KnownTypes = []Type{
	TypeFeature,
	TypePersona,
	TypeWorkflow,
	TypeBusinessDriver,
	TypeSolutionFlowStep,
	TypeUnlock,
	TypeStakeholder,
}

// IsValid returns true if the type is recognized.
func (t Type) IsValid() bool {
	for _, k := range KnownTypes {
		if t == k {
			return true
		}
	}
	return false
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// ParseType converts a string to a Type, returning empty for unknown values.
func ParseType(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t.IsValid() {
		return t
	}
	return ""
}

// Entity is a semantically typed record with arbitrary domain fields.
// Well-known fields (confidence, status, severity, priority, horizon_alignment)
// have typed accessors; everything else stays in the Fields bag untouched.
type Entity struct {
	Type      Type           `json:"type"`
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Field returns the raw value of a field and whether it is present.
func (e *Entity) Field(name string) (any, bool) {
	if e.Fields == nil {
		return nil, false
	}
	v, ok := e.Fields[name]
	return v, ok
}

// StringField returns a field coerced to string, or "" if absent or non-string.
func (e *Entity) StringField(name string) string {
	v, ok := e.Field(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// FloatField returns a numeric field as float64.
// JSON decoding produces float64 for all numbers; string values that parse
// as floats are accepted too since upstream payloads are loosely typed.
func (e *Entity) FloatField(name string) (float64, bool) {
	v, ok := e.Field(name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Confidence returns the well-known confidence field in [0,1], or 0 if unset.
func (e *Entity) Confidence() float64 {
	f, _ := e.FloatField("confidence")
	return f
}

// Status returns the well-known status field.
func (e *Entity) Status() string {
	return e.StringField("status")
}

// Severity returns the well-known severity field.
func (e *Entity) Severity() string {
	return e.StringField("severity")
}

// Priority returns the well-known priority field.
func (e *Entity) Priority() string {
	return e.StringField("priority")
}

// Name returns the best display name for the entity, trying the common
// naming fields in order.
func (e *Entity) Name() string {
	for _, f := range []string{"name", "title", "label"} {
		if s := e.StringField(f); s != "" {
			return s
		}
	}
	return e.ID
}

// Key returns the stable storage key for the entity.
func (e *Entity) Key() string {
	return fmt.Sprintf("%s:%s", e.Type, e.ID)
}

// HorizonAlignment scores how strongly an entity maps onto each horizon tier.
// Values are in [0,1]. Compound and Recommendation are written back by the
// compound-decision engine after analysis.
type HorizonAlignment struct {
	H1             float64 `json:"h1"`
	H2             float64 `json:"h2"`
	H3             float64 `json:"h3"`
	Compound       float64 `json:"compound,omitempty"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// Alignment extracts the horizon_alignment field. Missing or malformed
// alignment data yields the zero value, never an error.
func (e *Entity) Alignment() HorizonAlignment {
	v, ok := e.Field("horizon_alignment")
	if !ok {
		return HorizonAlignment{}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return HorizonAlignment{}
	}
	var a HorizonAlignment
	if f, ok := floatFrom(m["h1"]); ok {
		a.H1 = f
	}
	if f, ok := floatFrom(m["h2"]); ok {
		a.H2 = f
	}
	if f, ok := floatFrom(m["h3"]); ok {
		a.H3 = f
	}
	if f, ok := floatFrom(m["compound"]); ok {
		a.Compound = f
	}
	if s, ok := m["recommendation"].(string); ok {
		a.Recommendation = s
	}
	return a
}

// SetAlignment writes the horizon_alignment field back onto the entity.
func (e *Entity) SetAlignment(a HorizonAlignment) {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	m := map[string]any{
		"h1": a.H1,
		"h2": a.H2,
		"h3": a.H3,
	}
	if a.Compound != 0 {
		m["compound"] = a.Compound
	}
	if a.Recommendation != "" {
		m["recommendation"] = a.Recommendation
	}
	e.Fields["horizon_alignment"] = m
}

func floatFrom(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
