// Package interview bridges realtime interview clients to the session orchestrator.
package interview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

const (
	readTimeout   = 60 * time.Second
	pingInterval  = 54 * time.Second
	writeTimeout  = 10 * time.Second
	outboxSize    = 128
	maxAudioBytes = 64 << 20
	closeGrace    = 2 * time.Second
)

// Config wires the collaborators shared by every interview connection.
type Config struct {
	Generator     interviewService.Generator
	Store         storage.Store
	Prompts       *ai.PromptManager
	Extractor     interviewService.Extractor
	Options       interviewService.Options
	ModelProvider string
	Tracker       *Tracker
}

// WebSocketHandler 面试会话的WebSocket处理器
type WebSocketHandler struct {
	cfg      Config
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(cfg Config) *WebSocketHandler {
	if cfg.Tracker == nil {
		cfg.Tracker = NewTracker()
	}
	return &WebSocketHandler{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/interviews/{sessionID}/ws", h.handleWebSocket)
}

// Tracker returns the live-session tracker.
func (h *WebSocketHandler) Tracker() *Tracker {
	return h.cfg.Tracker
}

// Inbound message types sent by the realtime client.
const (
	MsgUserTranscript     = "user_transcript"
	MsgUserNote           = "user_note"
	MsgAgentSpeechStarted = "agent_speech_started"
	MsgAgentTranscript    = "agent_transcript"
	MsgMetrics            = "metrics"
	MsgToolCall           = "tool_call"
	MsgAudio              = "audio"
	MsgHangup             = "hangup"
)

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TranscriptMessage carries recognized or spoken text.
type TranscriptMessage struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// ToolCallMessage carries a function call made by the realtime model.
type ToolCallMessage struct {
	Name string `json:"name"`
}

// AudioMessage carries a chunk of the session recording.
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// recording buffers audio chunks and serves them to the session at finalize.
type recording struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (r *recording) write(data []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buffer.Len()+len(data) > maxAudioBytes {
		return false
	}
	r.buffer.Write(data)
	return true
}

func (r *recording) Audio(context.Context, string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buffer.Len() == 0 {
		return nil, errors.New("no audio recorded")
	}
	return append([]byte(nil), r.buffer.Bytes()...), nil
}

// outbox serializes writes to the connection.
type outbox struct {
	sessionID string
	ch        chan outgoingMessage
	closeOnce sync.Once
	done      chan struct{}
}

func newOutbox(sessionID string) *outbox {
	return &outbox{
		sessionID: sessionID,
		ch:        make(chan outgoingMessage, outboxSize),
		done:      make(chan struct{}),
	}
}

func (o *outbox) send(msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	select {
	case <-o.done:
	case o.ch <- msg:
	default:
		log.Printf("[websocket] session=%s outbox full, dropping %s", o.sessionID, msg.Type)
	}
}

// Notify implements interview.Notifier without blocking the session.
func (o *outbox) Notify(ev interviewService.Event) {
	o.send(outgoingMessage{Type: string(ev.Type), SessionID: ev.SessionID, Data: ev})
}

func (o *outbox) close() {
	o.closeOnce.Do(func() { close(o.done) })
}

func (o *outbox) run(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.done:
			// flush what the session already queued, including session_closed
			for {
				select {
				case msg := <-o.ch:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteJSON(msg); err != nil {
						return
					}
				default:
					return
				}
			}
		case msg := <-o.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[websocket] session=%s write failed: %v", o.sessionID, err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}
	if h.cfg.Generator == nil || h.cfg.Store == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "interview service unavailable")
		return
	}

	sessionCfg, err := h.sessionConfig(r, sessionID)
	if err != nil {
		log.Printf("[websocket] session=%s failed to load prep: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load interview prep")
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	unregister, ok := h.cfg.Tracker.Register(sessionID, Handle{Cancel: cancel})
	if !ok {
		utils.RespondError(w, http.StatusConflict, "session already live")
		return
	}
	defer unregister()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	out := newOutbox(sessionID)
	writerDone := make(chan struct{})
	rec := &recording{}
	session, err := interviewService.NewSession(sessionCfg, interviewService.Deps{
		Generator: h.cfg.Generator,
		Store:     h.cfg.Store,
		Prompts:   h.cfg.Prompts,
		Extractor: h.cfg.Extractor,
		Audio:     rec,
		Notifier:  out,
		Terminator: interviewService.TerminatorFunc(func(string) {
			// the close frame goes out only after the farewell and session_closed are flushed
			out.close()
			select {
			case <-writerDone:
			case <-time.After(writeTimeout):
				log.Printf("[websocket] session=%s outbox flush timed out before close", sessionID)
			}
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interview finished")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		}),
	}, h.cfg.Options)
	if err != nil {
		log.Printf("[websocket] session=%s create failed: %v", sessionID, err)
		return
	}

	go func() {
		defer close(writerDone)
		out.run(conn)
	}()

	out.send(outgoingMessage{Type: "connected", SessionID: sessionID, Data: map[string]any{
		"phases":     len(session.Agents()),
		"candidate":  sessionCfg.CandidateName,
		"multiAgent": sessionCfg.Plan != nil && len(sessionCfg.Plan.Phases) > 0,
	}})

	if err := session.Start(runCtx); err != nil {
		log.Printf("[websocket] session=%s start failed: %v", sessionID, err)
		out.close()
		<-writerDone
		return
	}
	log.Printf("[websocket] new interview connection for session: %s", sessionID)

	// A session that ends on its own gives the client a short grace period to hang up.
	go func() {
		select {
		case <-session.Done():
			_ = conn.SetReadDeadline(time.Now().Add(closeGrace))
		case <-writerDone:
		}
	}()

	h.readLoop(conn, session, rec, out, sessionID)
	session.Close(interviewService.ReasonDisconnected)

	waitCtx, waitCancel := context.WithTimeout(context.Background(),
		h.cfg.Options.GenerateTimeout+h.cfg.Options.FlushTimeout+30*time.Second)
	defer waitCancel()
	if err := session.Wait(waitCtx); err != nil {
		log.Printf("[websocket] session=%s did not finalize in time: %v", sessionID, err)
	}
	out.close()
	<-writerDone
}

func (h *WebSocketHandler) sessionConfig(r *http.Request, sessionID string) (interviewService.SessionConfig, error) {
	cfg := interviewService.SessionConfig{
		SessionID:     sessionID,
		CandidateName: strings.TrimSpace(r.URL.Query().Get("name")),
		ModelProvider: h.cfg.ModelProvider,
	}

	record, err := storage.LoadPrep(r.Context(), h.cfg.Store, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("[websocket] session=%s has no prep, interview will use the fallback briefing", sessionID)
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if cfg.CandidateName == "" {
		cfg.CandidateName = record.CandidateName
	}
	cfg.Plan = record.Plan
	cfg.Briefing = record.Briefing
	return cfg, nil
}

func (h *WebSocketHandler) readLoop(conn *websocket.Conn, session *interviewService.Session, rec *recording, out *outbox, sessionID string) {
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] session=%s read error: %v", sessionID, err)
			}
			return
		}
		select {
		case <-session.Done():
			return
		default:
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			out.send(errorMessage("session mismatch"))
			continue
		}
		if done := h.dispatch(session, rec, out, &msg); done {
			return
		}
	}
}

// dispatch maps one inbound message onto the session; it reports whether the client hung up.
func (h *WebSocketHandler) dispatch(session *interviewService.Session, rec *recording, out *outbox, msg *inboundMessage) bool {
	switch msg.Type {
	case MsgUserTranscript, MsgAgentTranscript, MsgUserNote:
		var text TranscriptMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			out.send(errorMessage("invalid transcript payload"))
			return false
		}
		switch msg.Type {
		case MsgUserTranscript:
			session.OnUserUtterance(text.Text, text.IsFinal)
		case MsgAgentTranscript:
			session.OnAgentUtterance(text.Text)
		default:
			session.OnUserNote(text.Text)
		}
	case MsgAgentSpeechStarted:
		session.OnAgentSpeechStarted()
	case MsgMetrics:
		var usage interviewmodel.Usage
		if err := json.Unmarshal(msg.Data, &usage); err != nil {
			out.send(errorMessage("invalid metrics payload"))
			return false
		}
		session.OnMetrics(usage)
	case MsgToolCall:
		var call ToolCallMessage
		if err := json.Unmarshal(msg.Data, &call); err != nil {
			out.send(errorMessage("invalid tool call payload"))
			return false
		}
		session.OnToolInvocation(call.Name)
	case MsgAudio:
		var audio AudioMessage
		if err := json.Unmarshal(msg.Data, &audio); err != nil {
			out.send(errorMessage("invalid audio payload"))
			return false
		}
		if !rec.write(audio.AudioData) {
			out.send(errorMessage("recording too large"))
		}
	case MsgHangup:
		return true
	default:
		out.send(errorMessage("unsupported message type: " + msg.Type))
	}
	return false
}

func errorMessage(message string) outgoingMessage {
	return outgoingMessage{Type: "error", Data: map[string]string{"message": message}}
}
