// Package intelapi exposes the engagement intelligence core over NATS.
// It consumes prompt compilation requests, runs the awareness, frame, and
// retrieval stages, and publishes the compiled prompt for the API layer.
package intelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/33prime/aios-req-engine-sub007/awareness"
	engineconfig "github.com/33prime/aios-req-engine-sub007/config"
	"github.com/33prime/aios-req-engine-sub007/entity"
	"github.com/33prime/aios-req-engine-sub007/frame"
	"github.com/33prime/aios-req-engine-sub007/graphquery"
	"github.com/33prime/aios-req-engine-sub007/llm"
	"github.com/33prime/aios-req-engine-sub007/rerank"
	"github.com/33prime/aios-req-engine-sub007/retrieval"
	"github.com/33prime/aios-req-engine-sub007/storage"
	"github.com/33prime/aios-req-engine-sub007/vector"
)

const defaultMaxTokens = 4000

// responseTTL bounds how long mirrored responses stay in the KV bucket.
const responseTTL = time.Hour

// Component implements the intelligence-api processor.
type Component struct {
	name       string
	config     Config
	engineCfg  *engineconfig.Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	library  *frame.Library
	compiler *frame.Compiler

	// Built in Start once JetStream is reachable.
	store     *storage.Store
	cache     *awareness.Cache
	retriever *retrieval.Retriever
	responses jetstream.KeyValue
	consumer  jetstream.Consumer

	// Lifecycle
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	// Metrics
	requestsProcessed atomic.Int64
	compilesFailed    atomic.Int64
}

// NewComponent creates a new intelligence-api processor.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	defaults := DefaultConfig()
	if config.StreamName == "" {
		config.StreamName = defaults.StreamName
	}
	if config.ConsumerName == "" {
		config.ConsumerName = defaults.ConsumerName
	}
	if config.RequestSubject == "" {
		config.RequestSubject = defaults.RequestSubject
	}
	if config.ResponseSubjectPrefix == "" {
		config.ResponseSubjectPrefix = defaults.ResponseSubjectPrefix
	}
	if config.ResponseBucket == "" {
		config.ResponseBucket = defaults.ResponseBucket
	}
	if config.Ports == nil {
		config.Ports = defaults.Ports
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := deps.GetLogger()

	engineCfg, err := engineconfig.NewLoader(logger).Load()
	if err != nil {
		logger.Warn("Engine config load failed, using defaults", "error", err)
		engineCfg = engineconfig.DefaultConfig()
	}

	library := frame.NewLibrary()
	if path := engineCfg.Frame.OverridesPath; path != "" {
		if err := library.LoadOverrides(path); err != nil {
			logger.Warn("Instruction override load failed", "path", path, "error", err)
		}
	}

	return &Component{
		name:       "intelligence-api",
		config:     config,
		engineCfg:  engineCfg,
		natsClient: deps.NATSClient,
		logger:     logger,
		library:    library,
		compiler:   frame.NewCompiler(library, logger),
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized intelligence-api",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"request_subject", c.config.RequestSubject)
	return nil
}

// Start begins processing compilation requests.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	js, err := c.natsClient.JetStream()
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get jetstream: %w", err)
	}

	store, err := storage.NewStore(subCtx, js)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create store: %w", err)
	}
	c.store = store
	c.cache = awareness.NewCache(awareness.NewBuilder(store, c.logger), c.engineCfg.Awareness.TTL)
	c.retriever = c.buildRetriever()

	responses, err := c.ensureResponseBucket(subCtx, js)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create response bucket: %w", err)
	}
	c.responses = responses

	stream, err := js.Stream(subCtx, c.config.StreamName)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get stream %s: %w", c.config.StreamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(subCtx, jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		FilterSubject: c.config.RequestSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       120 * time.Second,
		MaxDeliver:    3,
	})
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create consumer: %w", err)
	}
	c.consumer = consumer

	if path := c.engineCfg.Frame.OverridesPath; path != "" {
		if err := c.library.WatchOverrides(subCtx, path, c.logger); err != nil {
			c.logger.Warn("Instruction override watch failed", "path", path, "error", err)
		}
	}

	go c.consumeLoop(subCtx)

	c.logger.Info("intelligence-api started",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"subject", c.config.RequestSubject)

	return nil
}

// buildRetriever wires the pipeline from the engine config. Optional
// services missing from config simply drop their stage.
func (c *Component) buildRetriever() *retrieval.Retriever {
	vectorClient := vector.NewClient(c.engineCfg.Services.VectorURL)

	registry := c.engineCfg.BuildRegistry()
	llmClient := llm.NewClient(registry, llm.WithLogger(c.logger))

	opts := []retrieval.RetrieverOption{
		retrieval.WithTopK(c.engineCfg.Retrieval.TopK),
		retrieval.WithDecomposer(retrieval.NewLLMDecomposer(llmClient, c.logger)),
		retrieval.WithListwiseRanker(rerank.NewListwiseReranker(llmClient, c.logger)),
	}
	if c.engineCfg.Services.GraphURL != "" {
		opts = append(opts, retrieval.WithGraphQuerier(
			graphquery.NewClient(c.engineCfg.Services.GraphURL)))
	}
	if c.engineCfg.Services.RerankURL != "" {
		opts = append(opts, retrieval.WithCommercialReranker(
			rerank.NewClient(c.engineCfg.Services.RerankURL, "", c.engineCfg.Services.RerankModel)))
	}

	return retrieval.NewRetriever(vectorClient, c.logger, opts...)
}

func (c *Component) ensureResponseBucket(ctx context.Context, js jetstream.JetStream) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, c.config.ResponseBucket)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      c.config.ResponseBucket,
		Description: "Compiled prompt responses",
		TTL:         responseTTL,
	})
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

// consumeLoop continuously consumes messages from the JetStream consumer.
func (c *Component) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("Fetch timeout or error", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleMessage(ctx, msg)
		}

		if msgs.Error() != nil && msgs.Error() != context.DeadlineExceeded {
			c.logger.Warn("Message fetch error", "error", msgs.Error())
		}
	}
}

// handleMessage processes a single compilation request.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	c.requestsProcessed.Add(1)

	var baseMsg message.BaseMessage
	if err := json.Unmarshal(msg.Data(), &baseMsg); err != nil {
		c.logger.Error("Failed to parse message", "error", err)
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message", "error", err)
		}
		return
	}

	var req CompileRequest
	payloadBytes, err := json.Marshal(baseMsg.Payload())
	if err != nil {
		c.logger.Error("Failed to marshal payload", "error", err)
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message", "error", err)
		}
		return
	}
	if err := json.Unmarshal(payloadBytes, &req); err != nil {
		c.logger.Error("Failed to unmarshal request", "error", err)
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message", "error", err)
		}
		return
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	resp := c.compile(ctx, &req)
	if resp.Error != "" {
		c.compilesFailed.Add(1)
	}

	if err := c.publishResponse(ctx, resp); err != nil {
		c.logger.Error("Failed to publish response",
			"request_id", req.RequestID, "error", err)
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message", "error", err)
		}
		return
	}

	if err := msg.Ack(); err != nil {
		c.logger.Warn("Failed to ACK message", "error", err)
	}

	c.logger.Info("Prompt compiled",
		"request_id", req.RequestID,
		"project_id", req.ProjectID,
		"mode", resp.ActiveFrame.Mode,
		"chunks", resp.ChunkCount)
}

// compile runs the awareness, frame, retrieval, and assembly stages.
// Validation failures come back as an error payload; degraded stages
// produce a thinner prompt, never a failure.
func (c *Component) compile(ctx context.Context, req *CompileRequest) *CompileResponse {
	resp := &CompileResponse{
		RequestID: req.RequestID,
		ProjectID: req.ProjectID,
	}
	if err := req.Validate(); err != nil {
		resp.Error = err.Error()
		return resp
	}

	snapshot := c.cache.Load(ctx, req.ProjectID, req.ProjectName)
	pageContext, pageTypes := c.engineCfg.ResolvePage(req.PagePath)
	horizonState, horizonContext := c.loadHorizonState(ctx, req.ProjectID)

	in := frame.Inputs{
		Intent:          req.Intent,
		PageContext:     pageContext,
		FocusedEntityID: req.FocusedEntityID,
		Snapshot:        snapshot,
		Horizon:         horizonState,
	}

	plan := frame.PlanRetrieval(frame.SelectFrame(in))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	result := c.retriever.Retrieve(ctx, retrieval.Request{
		Query:           req.Query,
		ProjectID:       req.ProjectID,
		MaxRounds:       c.engineCfg.Retrieval.MaxRounds,
		EntityTypes:     pageTypes,
		GraphDepth:      plan.GraphDepth,
		ApplyRecency:    plan.ApplyRecency,
		ApplyConfidence: plan.ApplyConfidence,
		TopK:            c.engineCfg.Retrieval.TopK,
	})

	turn := frame.TurnContext{
		AwarenessSnapshot: awareness.FormatSnapshot(snapshot),
		HorizonContext:    horizonContext,
		RetrievedEvidence: retrieval.FormatEvidence(result, retrieval.StyleChat, maxTokens),
	}
	if req.FocusedEntityID != "" {
		turn.FocusedEntityDetail = c.focusedEntityDetail(ctx, req)
	}

	compiled := c.compiler.CompilePrompt(in, turn)

	resp.CachedBlock = compiled.CachedBlock
	resp.DynamicBlock = compiled.DynamicBlock
	resp.RetrievalPlan = compiled.RetrievalPlan
	resp.ActiveFrame = compiled.ActiveFrame
	resp.ChunkCount = len(result.Chunks)
	resp.EntityCount = len(result.Entities)
	resp.BeliefCount = len(result.Beliefs)
	return resp
}

// loadHorizonState reads the active near-term horizon and its blocking
// outcomes. Failures degrade to the zero state.
func (c *Component) loadHorizonState(ctx context.Context, projectID string) (frame.HorizonState, string) {
	horizons, err := c.store.ListHorizons(ctx, projectID)
	if err != nil {
		c.logger.Debug("Horizon load failed", "project_id", projectID, "error", err)
		return frame.HorizonState{}, ""
	}

	var h1 *entity.Horizon
	for _, h := range horizons {
		if h.HorizonNumber == 1 && h.Status == entity.HorizonActive {
			h1 = h
			break
		}
	}
	if h1 == nil {
		return frame.HorizonState{}, ""
	}

	blocking := 0
	outcomes, err := c.store.ListOutcomesByHorizon(ctx, h1.ID)
	if err != nil {
		c.logger.Debug("Outcome load failed", "horizon_id", h1.ID, "error", err)
	} else {
		for _, o := range outcomes {
			if o.IsBlocking && o.Status != entity.OutcomeAchieved {
				blocking++
			}
		}
	}

	state := frame.HorizonState{
		BlockingOutcomes: blocking,
		H1Readiness:      h1.ReadinessPct,
	}
	text := fmt.Sprintf("Near-term horizon %q: %.0f%% ready, %d blocking outcome(s) open.",
		h1.Title, h1.ReadinessPct, blocking)
	return state, text
}

// focusedEntityDetail renders a short description of the focused entity.
func (c *Component) focusedEntityDetail(ctx context.Context, req *CompileRequest) string {
	t := entity.ParseType(req.FocusedEntityType)
	if t == "" {
		return ""
	}
	e, err := c.store.GetEntity(ctx, t, req.FocusedEntityID)
	if err != nil {
		c.logger.Debug("Focused entity load failed",
			"entity_id", req.FocusedEntityID, "error", err)
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", e.Name(), e.Type)
	if s := e.Status(); s != "" {
		fmt.Fprintf(&b, ", status %s", s)
	}
	if d := e.StringField("description"); d != "" {
		b.WriteString("\n" + d)
	}
	return b.String()
}

func (c *Component) publishResponse(ctx context.Context, resp *CompileResponse) error {
	baseMsg := message.NewBaseMessage(CompileResponseType, resp, "intelligence-api")
	data, err := json.Marshal(baseMsg)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", c.config.ResponseSubjectPrefix, resp.RequestID)
	if err := c.natsClient.PublishToStream(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	// Mirror for HTTP-side polling. The publish already succeeded, a KV
	// miss only affects poll-based readers.
	if _, err := c.responses.Put(ctx, resp.RequestID, data); err != nil {
		c.logger.Warn("Failed to mirror response to KV",
			"request_id", resp.RequestID, "error", err)
	}

	return nil
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}

	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	c.logger.Info("intelligence-api stopped",
		"requests_processed", c.requestsProcessed.Load(),
		"compiles_failed", c.compilesFailed.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "intelligence-api",
		Type:        "processor",
		Description: "Compiles cognitive-frame prompts with retrieved project evidence",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionInput,
			Description: portDef.Description,
			Required:    portDef.Required,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionOutput,
			Description: portDef.Description,
			Required:    portDef.Required,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return intelAPISchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:   running,
		LastCheck: time.Now(),
		Uptime:    time.Since(startTime),
		Status:    status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{}
}
