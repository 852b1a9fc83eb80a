package frame_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/33prime/aios-req-engine-sub007/frame"
)

func TestInstructionBlock_FourParagraphs(t *testing.T) {
	lib := frame.NewLibrary()

	block := lib.InstructionBlock(frame.CognitiveFrame{
		Mode:     frame.ModeDiscover,
		Temporal: frame.TemporalPresentState,
		Scope:    frame.ScopeContextual,
		Posture:  frame.PostureExploratory,
	})

	paragraphs := strings.Split(block, "\n\n")
	assert.Len(t, paragraphs, 4)
	assert.Contains(t, paragraphs[0], "discovery mode")
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "instructions.yaml")
	override := `mode:
  discover: "Custom discovery paragraph."
  unknown_mode: "Ignored."
posture:
  assertive: ""
`
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

	lib := frame.NewLibrary()
	require.NoError(t, lib.LoadOverrides(path))

	block := lib.InstructionBlock(frame.CognitiveFrame{
		Mode:     frame.ModeDiscover,
		Temporal: frame.TemporalPresentState,
		Scope:    frame.ScopeContextual,
		Posture:  frame.PostureAssertive,
	})

	assert.Contains(t, block, "Custom discovery paragraph.")
	assert.NotContains(t, block, "Ignored.")
	// Empty override values keep the built-in paragraph.
	assert.Contains(t, block, "The material is confirmed.")
}

func TestLoadOverrides_MissingFileKeepsDefaults(t *testing.T) {
	lib := frame.NewLibrary()
	require.NoError(t, lib.LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml")))

	block := lib.InstructionBlock(frame.CognitiveFrame{Mode: frame.ModeSynthesize})
	assert.Contains(t, block, "synthesis mode")
}

func TestLoadOverrides_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "instructions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: [not a map"), 0o644))

	lib := frame.NewLibrary()
	assert.Error(t, lib.LoadOverrides(path))
}

func TestCompilePrompt_Blocks(t *testing.T) {
	lib := frame.NewLibrary()
	compiler := frame.NewCompiler(lib, slog.Default())

	in := frame.Inputs{Intent: frame.IntentDiscuss, PageContext: frame.PageOverview}
	turn := frame.TurnContext{
		AwarenessSnapshot: "Project: Acme (phase: brd)",
		HorizonContext:    "Near-term horizon: 40% ready",
	}

	p := compiler.CompilePrompt(in, turn)

	assert.Contains(t, p.CachedBlock, "engagement intelligence assistant")
	assert.Contains(t, p.CachedBlock, "discovery mode")

	assert.Contains(t, p.DynamicBlock, "## Project state")
	assert.Contains(t, p.DynamicBlock, "## Horizon context")
	assert.Contains(t, p.DynamicBlock, "## Current surface")
	// Empty turn fields drop their sections.
	assert.NotContains(t, p.DynamicBlock, "## Relevant memory")
	assert.NotContains(t, p.DynamicBlock, "## Retrieved evidence")

	assert.Equal(t, frame.ModeDiscover, p.ActiveFrame.Mode)
	assert.Equal(t, 0, p.RetrievalPlan.GraphDepth)
}

func TestCompilePrompt_CachedBlockStablePerFrame(t *testing.T) {
	lib := frame.NewLibrary()
	compiler := frame.NewCompiler(lib, slog.Default())

	in := frame.Inputs{Intent: frame.IntentDiscuss}
	a := compiler.CompilePrompt(in, frame.TurnContext{AwarenessSnapshot: "state one"})
	b := compiler.CompilePrompt(in, frame.TurnContext{AwarenessSnapshot: "state two"})

	assert.Equal(t, a.CachedBlock, b.CachedBlock)
	assert.NotEqual(t, a.DynamicBlock, b.DynamicBlock)
}
