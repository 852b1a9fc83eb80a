package frame

import (
	"log/slog"
	"strings"
)

// defaultIdentity opens every cached block. Stable text keeps the block
// cacheable across turns that share a frame.
const defaultIdentity = "You are the engagement intelligence assistant for a consulting delivery team. You help consultants understand a client project, shape its requirements, and drive its solution toward confirmed outcomes. You ground every statement in the project's recorded evidence."

const styleGuidance = "Write for working consultants: direct, specific, free of filler. Cite entities by name. When evidence is thin, say so instead of inventing detail."

// pageGuidance gives per-surface steering for the dynamic block.
var pageGuidance = map[string]string{
	PageOverview:        "The user is on the project overview. Favor summaries that connect areas of the project rather than deep detail on any one entity.",
	PageBusinessContext: "The user is reviewing business context. Tie discussion back to drivers, stakeholders, and measurable outcomes.",
	"solution_flow":     "The user is working in the solution flow. Keep responses anchored to specific steps and their confirmation state.",
	"prototype":         "The user is in prototype review. Prioritize session findings and what they imply for the design.",
}

// CompiledPrompt is the two-part prompt for one turn. CachedBlock is
// stable for a given frame and safe to prompt-cache; DynamicBlock is
// rebuilt every turn.
type CompiledPrompt struct {
	CachedBlock   string         `json:"cached_block"`
	DynamicBlock  string         `json:"dynamic_block"`
	RetrievalPlan RetrievalPlan  `json:"retrieval_plan"`
	ActiveFrame   CognitiveFrame `json:"active_frame"`
}

// TurnContext carries the per-turn data the dynamic block renders. Empty
// fields drop their section entirely.
type TurnContext struct {
	AwarenessSnapshot   string
	WarmMemory          string
	FocusedEntityDetail string
	Memory              string
	HorizonContext      string
	RetrievedEvidence   string
}

// Compiler assembles prompts from frames, instructions, and turn context.
type Compiler struct {
	library  *Library
	identity string
	logger   *slog.Logger
}

// NewCompiler creates a prompt compiler over an instruction library.
func NewCompiler(library *Library, logger *slog.Logger) *Compiler {
	return &Compiler{
		library:  library,
		identity: defaultIdentity,
		logger:   logger,
	}
}

// CompilePrompt selects the frame for the inputs and renders both blocks.
func (c *Compiler) CompilePrompt(in Inputs, turn TurnContext) CompiledPrompt {
	f := SelectFrame(in)

	c.logger.Debug("Cognitive frame selected",
		"mode", f.Mode,
		"temporal", f.Temporal,
		"scope", f.Scope,
		"posture", f.Posture,
		"intent", in.Intent,
		"page", in.PageContext)

	return CompiledPrompt{
		CachedBlock:   c.cachedBlock(f),
		DynamicBlock:  c.dynamicBlock(in, turn),
		RetrievalPlan: PlanRetrieval(f),
		ActiveFrame:   f,
	}
}

func (c *Compiler) cachedBlock(f CognitiveFrame) string {
	parts := []string{
		c.identity,
		c.library.InstructionBlock(f),
		styleGuidance,
	}
	return strings.Join(parts, "\n\n")
}

// dynamicBlock renders only the sections that have data.
func (c *Compiler) dynamicBlock(in Inputs, turn TurnContext) string {
	var b strings.Builder

	section := func(header, body string) {
		if body == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## " + header + "\n")
		b.WriteString(body)
	}

	section("Project state", turn.AwarenessSnapshot)
	section("Recent conversation context", turn.WarmMemory)
	if g := pageGuidance[in.PageContext]; g != "" {
		section("Current surface", g)
	}
	section("Focused entity", turn.FocusedEntityDetail)
	section("Relevant memory", turn.Memory)
	section("Horizon context", turn.HorizonContext)
	section("Retrieved evidence", turn.RetrievedEvidence)

	return b.String()
}
