package prep

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/tenant"
	prepService "github.com/zhouzirui/z-interview/backend/internal/service/prep"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

const maxRequestBytes = 1 << 20

// Runner runs the preparation pipeline.
type Runner interface {
	RunObserved(ctx context.Context, req prepService.Request, observer prepService.Observer) *prepService.Result
}

// Handler 面试准备流水线的HTTP处理器
type Handler struct {
	pipeline Runner
	tenants  tenant.Store
	store    storage.Store
}

// New 创建准备处理器
func New(pipeline Runner, tenants tenant.Store, store storage.Store) *Handler {
	return &Handler{
		pipeline: pipeline,
		tenants:  tenants,
		store:    store,
	}
}

// RegisterRoutes 注册准备相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/prep", h.handlePrep)
	r.Post("/prep/stream", h.handlePrepStream)
}

type prepRequest struct {
	SessionID  string         `json:"sessionId"`
	Name       string         `json:"name"`
	LifeStage  string         `json:"lifeStage"`
	Resume     map[string]any `json:"resume"`
	TenantID   string         `json:"tenantId"`
	PositionID string         `json:"positionId"`
}

func (h *Handler) parseRequest(r *http.Request) (prepService.Request, string, error) {
	var payload prepRequest
	if err := utils.DecodeJSON(r, maxRequestBytes, &payload); err != nil {
		return prepService.Request{}, "", err
	}

	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	t := tenant.Lookup(h.tenants, payload.TenantID)
	tenantCtx := tenant.Resolve(t, payload.PositionID)

	return prepService.Request{
		SessionID:     sessionID,
		CandidateName: strings.TrimSpace(payload.Name),
		LifeStage:     interview.ParseLifeStage(payload.LifeStage),
		ResumeData:    payload.Resume,
		Tenant:        &tenantCtx,
	}, t.ID, nil
}

// handlePrep 运行流水线并返回结果
func (h *Handler) handlePrep(w http.ResponseWriter, r *http.Request) {
	req, tenantID, err := h.parseRequest(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.pipeline.RunObserved(r.Context(), req, nil)
	h.persist(r.Context(), req, tenantID, result)
	utils.RespondJSON(w, http.StatusOK, result)
}

// handlePrepStream 以SSE推送阶段进度，最后发送结果
func (h *Handler) handlePrepStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	req, tenantID, err := h.parseRequest(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "session", map[string]string{"sessionId": req.SessionID})

	result := h.pipeline.RunObserved(r.Context(), req, func(ev prepService.Event) {
		utils.SendSSEEvent(w, flusher, string(ev.Type), ev)
	})
	h.persist(r.Context(), req, tenantID, result)
	utils.SendSSEEvent(w, flusher, "result", result)
}

func (h *Handler) persist(ctx context.Context, req prepService.Request, tenantID string, result *prepService.Result) {
	if h.store == nil || result == nil {
		return
	}
	record := &storage.PrepRecord{
		SessionID:     req.SessionID,
		CandidateName: req.CandidateName,
		LifeStage:     result.LifeStage,
		TenantID:      tenantID,
		Plan:          result.Plan,
		Briefing:      result.Briefing,
		Analysis:      result.Analysis,
		Resume:        req.ResumeData,
		Errors:        result.Errors,
		UsedFallback:  result.UsedFallback,
	}
	if err := storage.SavePrep(context.WithoutCancel(ctx), h.store, record); err != nil {
		log.Printf("[prep] failed to persist prep for session=%s: %v", req.SessionID, err)
	}
}
