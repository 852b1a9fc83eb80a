package intelapi

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"
)

// intelAPISchema defines the configuration schema.
var intelAPISchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the intelligence API component.
type Config struct {
	// StreamName is the JetStream stream for requests and responses.
	StreamName string `json:"stream_name"`

	// ConsumerName is the durable consumer name.
	ConsumerName string `json:"consumer_name"`

	// RequestSubject is the subject compile requests arrive on.
	RequestSubject string `json:"request_subject"`

	// ResponseSubjectPrefix prefixes per-request response subjects.
	ResponseSubjectPrefix string `json:"response_subject_prefix"`

	// ResponseBucket is the KV bucket responses are mirrored into for
	// HTTP-side polling.
	ResponseBucket string `json:"response_bucket"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		StreamName:            "INTEL",
		ConsumerName:          "intelligence-api",
		RequestSubject:        "intel.compile.request",
		ResponseSubjectPrefix: "intel.compiled",
		ResponseBucket:        "INTEL_RESPONSES",
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "compile-requests",
					Type:        "jetstream",
					Subject:     "intel.compile.request",
					StreamName:  "INTEL",
					Description: "Receive prompt compilation requests",
					Required:    true,
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "compiled-prompts",
					Type:        "jetstream",
					Subject:     "intel.compiled.>",
					StreamName:  "INTEL",
					Description: "Publish compiled prompts",
					Required:    true,
				},
			},
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer_name is required")
	}
	if c.RequestSubject == "" {
		return fmt.Errorf("request_subject is required")
	}
	if c.ResponseBucket == "" {
		return fmt.Errorf("response_bucket is required")
	}
	return nil
}
