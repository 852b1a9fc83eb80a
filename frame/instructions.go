package frame

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Built-in instruction paragraphs, one per dimension value. Overrides from
// a YAML file replace entries by key without touching the rest.
var (
	defaultModeInstructions = map[Mode]string{
		ModeDiscover:   "Operate in discovery mode. Ask open questions, surface unstated assumptions, and widen the problem space before narrowing. Do not propose solutions yet; gather the business reality first.",
		ModeSynthesize: "Operate in synthesis mode. Consolidate what is known into clear, structured artifacts. Resolve contradictions explicitly and name the evidence behind each conclusion.",
		ModeRefine:     "Operate in refinement mode. The structure exists; improve its precision. Challenge weak details, tighten definitions, and confirm each change against the established flow.",
		ModeExecute:    "Operate in execution mode. Work step by step through the confirmed flow. Be concrete and procedural; flag any step whose definition is too thin to act on.",
		ModeEvolve:     "Operate in evolution mode. Prototype feedback is reshaping the design. Treat existing artifacts as hypotheses, fold in what the sessions revealed, and record what changed and why.",
	}

	defaultTemporalInstructions = map[Temporal]string{
		TemporalRetrospective:  "Emphasize what was just learned. Ground responses in recent session findings and name how they change earlier conclusions.",
		TemporalPresentState:   "Emphasize the current state of the project. Describe what exists now; avoid speculating about future phases unless asked.",
		TemporalForwardLooking: "Emphasize what must happen next. Connect responses to the outcomes still blocking progress and the nearest horizon.",
	}

	defaultScopeInstructions = map[Scope]string{
		ScopePanoramic:  "Take in the whole project. Relate details back to the overall business case and cross-cutting themes.",
		ScopeContextual: "Stay within the current working context. Bring in neighboring entities only when they directly affect the matter at hand.",
		ScopeZoomedIn:   "Stay tightly focused on the entity under discussion. Go deep on its specifics; resist broadening the conversation.",
	}

	defaultPostureInstructions = map[Posture]string{
		PostureExploratory: "Hold conclusions loosely. Present options and trade-offs rather than single answers; invite correction.",
		PostureConfirming:  "The material is nearly settled. Seek explicit confirmation on specifics and close open questions rather than reopening settled ones.",
		PostureEvolving:    "The material is in flux. Acknowledge what changed, keep old and new versions distinct, and avoid presenting either as final.",
		PostureAssertive:   "The material is confirmed. Speak with confidence, drive toward completion, and only reopen decisions when new evidence demands it.",
	}
)

// instructionOverrides is the YAML override file shape.
type instructionOverrides struct {
	Mode     map[string]string `yaml:"mode"`
	Temporal map[string]string `yaml:"temporal"`
	Scope    map[string]string `yaml:"scope"`
	Posture  map[string]string `yaml:"posture"`
}

// Library resolves instruction paragraphs for frames. Concurrent-safe;
// overrides can be hot-reloaded while turns are being compiled.
type Library struct {
	mu       sync.RWMutex
	mode     map[Mode]string
	temporal map[Temporal]string
	scope    map[Scope]string
	posture  map[Posture]string
}

// NewLibrary creates a library with the built-in paragraphs.
func NewLibrary() *Library {
	l := &Library{
		mode:     make(map[Mode]string, len(defaultModeInstructions)),
		temporal: make(map[Temporal]string, len(defaultTemporalInstructions)),
		scope:    make(map[Scope]string, len(defaultScopeInstructions)),
		posture:  make(map[Posture]string, len(defaultPostureInstructions)),
	}
	for k, v := range defaultModeInstructions {
		l.mode[k] = v
	}
	for k, v := range defaultTemporalInstructions {
		l.temporal[k] = v
	}
	for k, v := range defaultScopeInstructions {
		l.scope[k] = v
	}
	for k, v := range defaultPostureInstructions {
		l.posture[k] = v
	}
	return l
}

// InstructionBlock concatenates the four dimension paragraphs for a frame.
func (l *Library) InstructionBlock(f CognitiveFrame) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	parts := make([]string, 0, 4)
	if p := l.mode[f.Mode]; p != "" {
		parts = append(parts, p)
	}
	if p := l.temporal[f.Temporal]; p != "" {
		parts = append(parts, p)
	}
	if p := l.scope[f.Scope]; p != "" {
		parts = append(parts, p)
	}
	if p := l.posture[f.Posture]; p != "" {
		parts = append(parts, p)
	}
	return strings.Join(parts, "\n\n")
}

// LoadOverrides merges a YAML override file into the library. Unknown keys
// are ignored; missing file is not an error, the defaults stay.
func (l *Library) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading instruction overrides: %w", err)
	}

	var ov instructionOverrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("parsing instruction overrides: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range ov.Mode {
		if _, known := defaultModeInstructions[Mode(k)]; known && v != "" {
			l.mode[Mode(k)] = v
		}
	}
	for k, v := range ov.Temporal {
		if _, known := defaultTemporalInstructions[Temporal(k)]; known && v != "" {
			l.temporal[Temporal(k)] = v
		}
	}
	for k, v := range ov.Scope {
		if _, known := defaultScopeInstructions[Scope(k)]; known && v != "" {
			l.scope[Scope(k)] = v
		}
	}
	for k, v := range ov.Posture {
		if _, known := defaultPostureInstructions[Posture(k)]; known && v != "" {
			l.posture[Posture(k)] = v
		}
	}
	return nil
}

// WatchOverrides reloads the override file whenever it changes, until the
// context is cancelled. Reload failures are logged and the previous
// paragraphs stay in effect.
func (l *Library) WatchOverrides(ctx context.Context, path string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating override watcher: %w", err)
	}

	// Watch the directory: editors replace files on save, which drops
	// a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching override directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := l.LoadOverrides(path); err != nil {
					logger.Warn("Instruction override reload failed", "path", path, "error", err)
					continue
				}
				logger.Info("Instruction overrides reloaded", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Override watcher error", "error", err)
			}
		}
	}()

	return nil
}
