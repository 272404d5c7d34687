// Package interview runs a voice interview as a sequence of phase agents.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	"github.com/zhouzirui/z-interview/backend/internal/service/prep"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
)

// State is the lifecycle state of a session.
type State string

const (
	StateInitializing State = "initializing"
	StateActive       State = "active"
	StateDraining     State = "draining"
	StateClosed       State = "closed"
)

// Close reasons recorded in the artifact.
const (
	ReasonCompleted    = "completed"
	ReasonEarlyExit    = "early_exit"
	ReasonInactivity   = "inactivity"
	ReasonDisconnected = "disconnected"
	ReasonCancelled    = "cancelled"
)

var (
	ErrAlreadyStarted = errors.New("interview session already started")
	ErrNoGenerator    = errors.New("interview session requires a generator")
	ErrNoStore        = errors.New("interview session requires a store")
)

// SessionConfig describes what the session interviews about.
type SessionConfig struct {
	SessionID     string
	CandidateName string
	Plan          *interviewmodel.InterviewPlan
	Briefing      *interviewmodel.Briefing
	ModelProvider string
}

// Deps are the collaborators of a session. Generator and Store are required.
type Deps struct {
	Generator  Generator
	Store      storage.Store
	Prompts    *ai.PromptManager
	Extractor  Extractor
	Audio      AudioSource
	Terminator Terminator
	Notifier   Notifier
}

// Options tunes timing and behavior. Zero values select the defaults.
type Options struct {
	// CarryoverTurns is the handoff window; negative disables carryover.
	CarryoverTurns     int
	MinSessionDuration time.Duration
	GenerateTimeout    time.Duration
	FlushTimeout       time.Duration
	// InactivityTimeout negative disables the supervisor.
	InactivityTimeout  time.Duration
	InactivityInterval time.Duration
	// ManualReplies stops the session from requesting a reply after each final user utterance.
	ManualReplies bool
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.CarryoverTurns == 0 {
		o.CarryoverTurns = 8
	} else if o.CarryoverTurns < 0 {
		o.CarryoverTurns = 0
	}
	if o.MinSessionDuration <= 0 {
		o.MinSessionDuration = 10 * time.Second
	}
	if o.GenerateTimeout <= 0 {
		o.GenerateTimeout = 30 * time.Second
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = 5 * time.Second
	}
	if o.InactivityTimeout == 0 {
		o.InactivityTimeout = 5 * time.Minute
	}
	if o.InactivityInterval <= 0 {
		o.InactivityInterval = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Snapshot is a consistent copy of session state for observers.
type Snapshot struct {
	SessionID   string                           `json:"session_id"`
	State       State                            `json:"state"`
	PhaseIndex  int                              `json:"phase_index"`
	PhaseName   string                           `json:"phase_name"`
	PhaseCount  int                              `json:"phase_count"`
	Transcript  []interviewmodel.TranscriptEntry `json:"transcript"`
	CloseReason string                           `json:"close_reason,omitempty"`
}

type turnKind int

const (
	turnOpening turnKind = iota
	turnReply
	turnTransition
	turnNoteAck
)

type pendingTurn struct {
	kind       turnKind
	directive  string
	allowTools bool
}

type turnOutcome struct {
	agent      int
	kind       turnKind
	allowTools bool
	result     *TurnResult
	err        error
}

type eventKind int

const (
	evUserUtterance eventKind = iota
	evAgentSpeechStarted
	evAgentUtterance
	evMetrics
	evUserNote
	evToolInvocation
	evPhaseAdvance
	evClose
)

type event struct {
	kind    eventKind
	text    string
	isFinal bool
	usage   interviewmodel.Usage
	reason  string
}

// Session is the orchestrator of one interview. All state mutations happen on
// a single goroutine; the exported On* methods only enqueue events.
type Session struct {
	id            string
	candidateName string
	provider      string
	deps          Deps
	opts          Options
	prompts       *ai.PromptManager

	agents     []*PhaseAgent
	phaseNames []string
	multiAgent bool

	events  chan event
	results chan turnOutcome
	stopped chan struct{}
	done    chan struct{}

	started      atomic.Bool
	closing      atomic.Bool
	lastActivity atomic.Int64
	runCtx       context.Context
	cancelRun    context.CancelFunc

	// owned by the event loop; active is also written under mu for Snapshot
	active        int
	contexts      [][]Turn
	transitions   []interviewmodel.PhaseTransition
	usage         interviewmodel.Usage
	latencies     []time.Duration
	lastUserEnd   time.Time
	lastStamp     time.Time
	startedAt     time.Time
	generating    bool
	genCancel     context.CancelFunc
	queue         []pendingTurn
	transitioning bool
	flushTimer    *time.Timer

	mu          sync.RWMutex
	state       State
	transcript  []interviewmodel.TranscriptEntry
	closeReason string
	artifact    *interviewmodel.SessionArtifact
}

// NewSession builds the agents for cfg. A plan with phases drives a multi-phase
// session; otherwise the briefing, or the fallback briefing, drives a single agent.
func NewSession(cfg SessionConfig, deps Deps, opts Options) (*Session, error) {
	if deps.Generator == nil {
		return nil, ErrNoGenerator
	}
	if deps.Store == nil {
		return nil, ErrNoStore
	}
	if strings.TrimSpace(cfg.SessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}

	prompts := deps.Prompts
	if prompts == nil {
		prompts = ai.NewPromptManager()
	}

	phases, brief, multi := resolveSource(cfg)
	agents := BuildAgents(phases, brief, prompts)
	names := make([]string, len(agents))
	contexts := make([][]Turn, len(agents))
	for i, agent := range agents {
		names[i] = agent.Phase.Name
		contexts[i] = []Turn{newTurn(TurnSystem, agent.Instructions)}
	}

	s := &Session{
		id:            cfg.SessionID,
		candidateName: strings.TrimSpace(cfg.CandidateName),
		provider:      cfg.ModelProvider,
		deps:          deps,
		opts:          opts.withDefaults(),
		prompts:       prompts,
		agents:        agents,
		phaseNames:    names,
		multiAgent:    multi,
		events:        make(chan event, 64),
		results:       make(chan turnOutcome, 1),
		stopped:       make(chan struct{}),
		done:          make(chan struct{}),
		contexts:      contexts,
		state:         StateInitializing,
		transcript:    []interviewmodel.TranscriptEntry{},
	}
	return s, nil
}

func resolveSource(cfg SessionConfig) ([]interviewmodel.Phase, Brief, bool) {
	brief := Brief{CandidateName: cfg.CandidateName}
	if b := cfg.Briefing; b != nil {
		brief.CandidateContext = b.CandidateContext
		brief.TopicsToAvoid = b.TopicsToAvoid
		brief.Hints = b.PersonalizationHints
	}

	if cfg.Plan != nil && len(cfg.Plan.Phases) > 0 {
		if brief.CandidateContext == "" {
			brief.CandidateContext = "Interview with " + displayName(cfg.CandidateName) + "."
		}
		return cfg.Plan.Normalized().Phases, brief, true
	}

	briefing := cfg.Briefing
	if briefing == nil || len(briefing.QuestionsScript) == 0 {
		log.Printf("[interview] session=%s has no plan or briefing, using fallback briefing", cfg.SessionID)
		briefing = prep.FallbackBriefing(cfg.CandidateName)
		brief.CandidateContext = briefing.CandidateContext
		brief.TopicsToAvoid = briefing.TopicsToAvoid
		brief.Hints = briefing.PersonalizationHints
	}
	brief.Guidelines = string(briefing.Guidelines)
	return []interviewmodel.Phase{briefing.AsPhase()}, brief, false
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "there"
	}
	return name
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Agents returns the phase agents in order.
func (s *Session) Agents() []*PhaseAgent { return s.agents }

// Start runs the event loop and the inactivity supervisor. Cancelling ctx closes
// the session with reason cancelled.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	s.runCtx, s.cancelRun = context.WithCancel(context.WithoutCancel(ctx))
	s.startedAt = s.opts.Now()
	s.touch()

	go s.loop()
	go func() {
		select {
		case <-ctx.Done():
			s.Close(ReasonCancelled)
		case <-s.stopped:
		}
	}()

	if s.opts.InactivityTimeout > 0 {
		supervisor := Supervisor{
			Interval:  s.opts.InactivityInterval,
			Threshold: s.opts.InactivityTimeout,
			Now:       s.opts.Now,
		}
		go supervisor.Watch(s.runCtx, s)
	}

	log.Printf("[interview] session=%s started | agents=%d | multi_agent=%t", s.id, len(s.agents), s.multiAgent)
	return nil
}

func (s *Session) post(ev event) {
	if !s.started.Load() {
		log.Printf("[interview] session=%s event dropped before start", s.id)
		return
	}
	select {
	case s.events <- ev:
	case <-s.stopped:
	}
}

// OnUserUtterance records a user transcription event.
func (s *Session) OnUserUtterance(text string, isFinal bool) {
	s.post(event{kind: evUserUtterance, text: text, isFinal: isFinal})
}

// OnAgentSpeechStarted marks the start of agent speech for latency tracking.
func (s *Session) OnAgentSpeechStarted() {
	s.post(event{kind: evAgentSpeechStarted})
}

// OnAgentUtterance records agent speech produced outside the generator.
func (s *Session) OnAgentUtterance(text string) {
	s.post(event{kind: evAgentUtterance, text: text})
}

// OnMetrics accumulates token usage reported by the realtime service.
func (s *Session) OnMetrics(usage interviewmodel.Usage) {
	s.post(event{kind: evMetrics, usage: usage})
}

// OnUserNote records a typed note and asks the agent to acknowledge it.
func (s *Session) OnUserNote(text string) {
	s.post(event{kind: evUserNote, text: text})
}

// OnToolInvocation applies a tool call made by the active agent.
func (s *Session) OnToolInvocation(name string) {
	s.post(event{kind: evToolInvocation, text: name})
}

// OnPhaseAdvance hands off to the next phase agent.
func (s *Session) OnPhaseAdvance() {
	s.post(event{kind: evPhaseAdvance})
}

// OnEarlyExit ends the session at the candidate's request.
func (s *Session) OnEarlyExit() {
	s.Close(ReasonEarlyExit)
}

// OnNormalEnd ends the session after the closing phase.
func (s *Session) OnNormalEnd() {
	s.Close(ReasonCompleted)
}

// OnInactivityExceeded is raised by the supervisor.
func (s *Session) OnInactivityExceeded() {
	s.Close(ReasonInactivity)
}

// Close drains and finalizes the session. Only the first call has an effect.
func (s *Session) Close(reason string) {
	s.post(event{kind: evClose, reason: reason})
}

// Done is closed once the artifact has been persisted.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session is finalized or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastActivity returns the time of the most recent user or agent activity.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Snapshot returns a copy of the observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID:   s.id,
		State:       s.state,
		PhaseCount:  len(s.agents),
		Transcript:  append([]interviewmodel.TranscriptEntry(nil), s.transcript...),
		CloseReason: s.closeReason,
	}
	snap.PhaseIndex = s.active
	if snap.PhaseIndex < len(s.phaseNames) {
		snap.PhaseName = s.phaseNames[snap.PhaseIndex]
	}
	return snap
}

// Artifact returns the persisted artifact, or nil before finalization.
func (s *Session) Artifact() *interviewmodel.SessionArtifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact
}

func (s *Session) touch() {
	s.lastActivity.Store(s.opts.Now().UnixNano())
}

func (s *Session) loop() {
	s.setState(StateActive)
	s.enqueue(pendingTurn{
		kind:       turnOpening,
		directive:  s.prompts.MustRender(ai.PromptOpening, map[string]string{"name": displayName(s.candidateName)}),
		allowTools: true,
	})

	for {
		var flushC <-chan time.Time
		if s.flushTimer != nil {
			flushC = s.flushTimer.C
		}

		select {
		case ev := <-s.events:
			s.handle(ev)
		case outcome := <-s.results:
			s.handleTurn(outcome)
		case <-flushC:
			s.flushTimer = nil
			if s.generating {
				log.Printf("[interview] session=%s flush timed out, abandoning in-flight turn", s.id)
				s.genCancel()
				s.generating = false
				s.genCancel = nil
			}
		}

		if s.currentState() == StateDraining && !s.generating {
			break
		}
	}

	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
	close(s.stopped)
	s.finalize()
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case evUserUtterance:
		s.handleUserUtterance(ev.text, ev.isFinal)
	case evAgentSpeechStarted:
		s.touch()
		if !s.lastUserEnd.IsZero() {
			s.latencies = append(s.latencies, s.opts.Now().Sub(s.lastUserEnd))
			s.lastUserEnd = time.Time{}
		}
	case evAgentUtterance:
		text := strings.TrimSpace(ev.text)
		if text == "" {
			return
		}
		s.touch()
		s.contexts[s.active] = append(s.contexts[s.active], newTurn(TurnAssistant, text))
		s.appendTranscript(interviewmodel.RoleAgent, text, true)
	case evMetrics:
		s.usage = s.usage.Add(ev.usage)
	case evUserNote:
		s.handleUserNote(ev.text)
	case evToolInvocation:
		s.applyTool(s.active, ev.text)
	case evPhaseAdvance:
		s.advance()
	case evClose:
		s.beginDrain(ev.reason)
	}
}

func (s *Session) handleUserUtterance(text string, isFinal bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.touch()
	s.appendTranscript(interviewmodel.RoleUser, text, isFinal)
	if !isFinal {
		return
	}

	s.lastUserEnd = s.opts.Now()
	if s.currentState() != StateActive {
		return
	}
	s.contexts[s.active] = append(s.contexts[s.active], newTurn(TurnUser, text))
	if !s.opts.ManualReplies {
		s.enqueue(pendingTurn{kind: turnReply, allowTools: true})
	}
}

func (s *Session) handleUserNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	s.touch()
	text := "[Written note] " + note
	s.appendTranscript(interviewmodel.RoleUser, text, true)
	if s.currentState() != StateActive {
		return
	}
	s.contexts[s.active] = append(s.contexts[s.active], newTurn(TurnUser, text))
	s.enqueue(pendingTurn{
		kind:       turnNoteAck,
		directive:  s.prompts.MustRender(ai.PromptNoteAck, map[string]string{"note": note}),
		allowTools: true,
	})
}

func (s *Session) enqueue(turn pendingTurn) {
	if turn.kind == turnReply {
		for _, queued := range s.queue {
			if queued.kind == turnReply {
				return
			}
		}
	}
	s.queue = append(s.queue, turn)
	s.dispatch()
}

// dispatch starts the next queued turn; at most one generation is in flight.
func (s *Session) dispatch() {
	if s.generating || len(s.queue) == 0 || s.currentState() != StateActive {
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]

	agent := s.agents[s.active]
	req := TurnRequest{
		SessionID:    s.id,
		AgentName:    agent.Name(),
		Instructions: agent.Instructions,
		Context:      append([]Turn(nil), s.contexts[s.active]...),
		Directive:    next.directive,
	}
	if next.allowTools {
		req.Tools = agent.Tools()
	}

	ctx, cancel := context.WithTimeout(s.runCtx, s.opts.GenerateTimeout)
	s.generating = true
	s.genCancel = cancel

	go func(agentIndex int) {
		defer cancel()
		result, err := s.deps.Generator.Generate(ctx, req)
		outcome := turnOutcome{agent: agentIndex, kind: next.kind, allowTools: next.allowTools, result: result, err: err}
		select {
		case s.results <- outcome:
		case <-s.stopped:
		}
	}(agent.Index)
}

func (s *Session) handleTurn(outcome turnOutcome) {
	if s.genCancel != nil {
		s.genCancel()
	}
	s.generating = false
	s.genCancel = nil
	if outcome.kind == turnTransition {
		s.transitioning = false
	}

	if outcome.err != nil {
		log.Printf("[interview] session=%s turn generation failed for agent %d: %v", s.id, outcome.agent, outcome.err)
		s.notify(Event{Type: EventError, Error: outcome.err.Error()})
	} else if outcome.result != nil {
		s.usage = s.usage.Add(outcome.result.Usage)
		if text := strings.TrimSpace(outcome.result.Text); text != "" {
			turn := newTurn(TurnAssistant, text)
			s.contexts[outcome.agent] = append(s.contexts[outcome.agent], turn)
			if outcome.agent < s.active {
				// finished after the handoff copied the window
				s.contexts[s.active] = Carryover([]Turn{turn}, s.contexts[s.active], s.opts.CarryoverTurns)
			}
			s.appendTranscript(interviewmodel.RoleAgent, text, true)
		}
		if outcome.allowTools && s.currentState() == StateActive {
			for _, name := range outcome.result.ToolCalls {
				s.applyTool(outcome.agent, name)
			}
		}
	}

	s.dispatch()
}

func (s *Session) applyTool(agentIndex int, name string) {
	cmd, ok := ParseCommand(name)
	if !ok {
		log.Printf("[interview] session=%s ignoring unknown tool %q", s.id, name)
		return
	}
	if agentIndex != s.active {
		log.Printf("[interview] session=%s ignoring %s from stale agent %d (active=%d)", s.id, cmd, agentIndex, s.active)
		return
	}
	agent := s.agents[agentIndex]
	if !agent.Allows(cmd) {
		log.Printf("[interview] session=%s agent %s cannot call %s", s.id, agent.Name(), cmd)
		return
	}

	switch cmd {
	case CommandAdvance:
		s.advance()
	case CommandEndNormally, CommandEndEarly:
		call := newTurn(TurnTool, "")
		call.Command = cmd
		s.contexts[agentIndex] = append(s.contexts[agentIndex], call)
		if cmd == CommandEndNormally {
			s.beginDrain(ReasonCompleted)
		} else {
			s.beginDrain(ReasonEarlyExit)
		}
	}
}

func (s *Session) advance() {
	if s.currentState() != StateActive {
		return
	}
	if s.transitioning {
		log.Printf("[interview] session=%s advance rejected, transition already in progress", s.id)
		return
	}
	if s.active >= len(s.agents)-1 {
		log.Printf("[interview] session=%s no more phases, ending interview", s.id)
		s.beginDrain(ReasonCompleted)
		return
	}

	prev := s.active
	handoff := newTurn(TurnTool, "")
	handoff.Command = CommandAdvance
	handoff.Handoff = true
	s.contexts[prev] = append(s.contexts[prev], handoff)

	next := prev + 1
	s.contexts[next] = Carryover(s.contexts[prev], s.contexts[next], s.opts.CarryoverTurns)

	s.mu.Lock()
	s.active = next
	s.mu.Unlock()

	s.transitions = append(s.transitions, interviewmodel.PhaseTransition{From: prev, To: next, At: s.opts.Now()})
	s.queue = nil
	s.transitioning = true

	log.Printf("[interview] session=%s handoff %s -> %s", s.id, s.agents[prev].Name(), s.agents[next].Name())
	s.notify(Event{Type: EventPhaseChanged, PhaseIndex: next, PhaseName: s.phaseNames[next]})

	s.enqueue(pendingTurn{
		kind:      turnTransition,
		directive: s.prompts.MustRender(ai.PromptTransition, nil),
	})
}

func (s *Session) beginDrain(reason string) {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	if reason == "" {
		reason = ReasonDisconnected
	}

	s.mu.Lock()
	s.state = StateDraining
	s.closeReason = reason
	s.mu.Unlock()

	s.queue = nil
	log.Printf("[interview] session=%s draining | reason=%s | phase=%d", s.id, reason, s.active)

	if s.generating {
		s.flushTimer = time.NewTimer(s.opts.FlushTimeout)
	}
}

func (s *Session) appendTranscript(role interviewmodel.Role, text string, isFinal bool) {
	ts := s.opts.Now()
	if ts.Before(s.lastStamp) {
		ts = s.lastStamp
	}
	s.lastStamp = ts

	s.mu.Lock()
	s.transcript = append(s.transcript, interviewmodel.TranscriptEntry{
		Role:      role,
		Text:      text,
		Timestamp: ts,
		IsFinal:   isFinal,
	})
	s.mu.Unlock()

	s.notify(Event{Type: EventTranscript, Role: role, Text: text, IsFinal: isFinal, Timestamp: ts})
}

func (s *Session) notify(ev Event) {
	if s.deps.Notifier == nil {
		return
	}
	ev.SessionID = s.id
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.opts.Now()
	}
	if ev.Type != EventPhaseChanged {
		ev.PhaseIndex = s.active
	}
	s.deps.Notifier.Notify(ev)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) currentState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
