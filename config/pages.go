package config

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// PageRule maps a client route pattern onto a canonical page context. The
// first matching rule wins; unmatched routes have no page context.
type PageRule struct {
	// Pattern is a doublestar glob over the route path
	Pattern string `yaml:"pattern"`
	// Context is the canonical page context name
	Context string `yaml:"context"`
	// EntityTypes scopes retrieval to these entity kinds on this page
	EntityTypes []string `yaml:"entity_types,omitempty"`
}

func (r PageRule) validate() error {
	if r.Pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	if r.Context == "" {
		return fmt.Errorf("context is required")
	}
	if !doublestar.ValidatePattern(r.Pattern) {
		return fmt.Errorf("invalid pattern %q", r.Pattern)
	}
	return nil
}

func defaultPageRules() []PageRule {
	return []PageRule{
		{Pattern: "/projects/*/overview", Context: "overview"},
		{Pattern: "/projects/*/context/**", Context: "business_context", EntityTypes: []string{"business_driver", "stakeholder"}},
		{Pattern: "/projects/*/flow/**", Context: "solution_flow", EntityTypes: []string{"solution_flow_step", "workflow"}},
		{Pattern: "/projects/*/prototype/**", Context: "prototype", EntityTypes: []string{"unlock", "feature"}},
		{Pattern: "/projects/*/features/**", Context: "features", EntityTypes: []string{"feature", "persona"}},
	}
}

// ResolvePage maps a route path to its page context and entity-type scope.
// Returns empty context when nothing matches.
func (c *Config) ResolvePage(routePath string) (string, []string) {
	for _, rule := range c.Pages {
		ok, err := doublestar.Match(rule.Pattern, routePath)
		if err != nil || !ok {
			continue
		}
		return rule.Context, rule.EntityTypes
	}
	return "", nil
}
