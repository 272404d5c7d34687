package sessions

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/enhancement"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

const maxTranscriptBytes = 4 << 20

// Extractor derives a profile from a transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript []interview.TranscriptEntry) interview.Profile
}

// Enhancer merges a resume with an interview transcript.
type Enhancer interface {
	Enhance(ctx context.Context, req enhancement.Request) (interview.EnhancedResume, error)
}

// Handler 会话产物的HTTP处理器
type Handler struct {
	store     storage.Store
	extractor Extractor
	enhancer  Enhancer
}

// New 创建会话处理器；extractor 和 enhancer 可以为 nil。
func New(store storage.Store, extractor Extractor, enhancer Enhancer) *Handler {
	return &Handler{store: store, extractor: extractor, enhancer: enhancer}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleList)
	r.Get("/sessions/{sessionID}", h.handleShow)
	r.Get("/sessions/{sessionID}/audio", h.handleAudio)
	r.Get("/sessions/{sessionID}/prep", h.handlePrep)
	r.Get("/sessions/{sessionID}/enhanced-resume", h.handleEnhanced)
	r.Post("/extract-profile", h.handleExtract)
	r.Post("/generate-profile", h.handleGenerate)
}

// Summary is one row of the session list.
type Summary struct {
	SessionID       string    `json:"session_id"`
	CandidateName   string    `json:"candidate_name"`
	Timestamp       time.Time `json:"timestamp"`
	Duration        string    `json:"duration"`
	CloseReason     string    `json:"close_reason"`
	HasAudio        bool      `json:"has_audio"`
	TranscriptCount int       `json:"transcript_count"`
}

// handleList 列出已完成的会话，最新的在前
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListSessions(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		artifact, err := storage.LoadSession(r.Context(), h.store, id)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				log.Printf("[sessions] skipping %s: %v", id, err)
			}
			continue
		}
		summaries = append(summaries, Summary{
			SessionID:       artifact.SessionID,
			CandidateName:   artifact.CandidateName,
			Timestamp:       artifact.Timestamp,
			Duration:        artifact.Duration.Formatted,
			CloseReason:     artifact.CloseReason,
			HasAudio:        artifact.AudioFile != "",
			TranscriptCount: len(artifact.Transcript),
		})
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

type sessionDetail struct {
	*interview.SessionArtifact
	AudioAvailable bool `json:"audio_available"`
}

// handleShow 返回完整的会话产物
func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	artifact, err := storage.LoadSession(r.Context(), h.store, sessionID)
	if err != nil {
		h.respondLoadError(w, err, "session not found")
		return
	}

	_, audioErr := h.store.LoadArtifact(r.Context(), sessionID, storage.KindAudio)
	utils.RespondJSON(w, http.StatusOK, sessionDetail{SessionArtifact: artifact, AudioAvailable: audioErr == nil})
}

// handleAudio 返回会话录音
func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	data, err := h.store.LoadArtifact(r.Context(), sessionID, storage.KindAudio)
	if err != nil {
		h.respondLoadError(w, err, "audio file not found")
		return
	}

	w.Header().Set("Content-Type", "audio/ogg")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sessionID+`.ogg"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[sessions] failed to write audio for %s: %v", sessionID, err)
	}
}

// handlePrep 返回会话的准备结果
func (h *Handler) handlePrep(w http.ResponseWriter, r *http.Request) {
	record, err := storage.LoadPrep(r.Context(), h.store, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondLoadError(w, err, "prep not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, record)
}

// handleExtract 对任意转写内容运行画像抽取
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	if h.extractor == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "profile extraction unavailable")
		return
	}

	var payload struct {
		Transcript []interview.TranscriptEntry `json:"transcript"`
	}
	if err := utils.DecodeJSON(r, maxTranscriptBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile := h.extractor.Extract(r.Context(), payload.Transcript)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

// handleEnhanced 返回已生成的增强简历
func (h *Handler) handleEnhanced(w http.ResponseWriter, r *http.Request) {
	resume, err := storage.LoadEnhancedResume(r.Context(), h.store, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondLoadError(w, err, "enhanced resume not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"profile": resume})
}

type generateRequest struct {
	SessionID  string                      `json:"session_id"`
	Basics     enhancement.Basics          `json:"basics_answers"`
	Transcript []interview.TranscriptEntry `json:"transcript"`
	Resume     map[string]any              `json:"resume"`
}

// handleGenerate 合并简历与面试内容生成增强简历；
// 提供 session_id 时缺省的转写、简历和分析从已保存的产物中读取，结果也会保存。
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.enhancer == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "resume enhancement unavailable")
		return
	}

	var payload generateRequest
	if err := utils.DecodeJSON(r, maxTranscriptBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := enhancement.Request{
		Resume:     payload.Resume,
		Transcript: payload.Transcript,
		Basics:     payload.Basics,
	}
	if payload.SessionID != "" {
		if len(req.Transcript) == 0 {
			artifact, err := storage.LoadSession(r.Context(), h.store, payload.SessionID)
			if err != nil {
				h.respondLoadError(w, err, "session not found")
				return
			}
			req.Transcript = artifact.Transcript
			if req.Basics.Name == "" {
				req.Basics.Name = artifact.CandidateName
			}
		}
		record, err := storage.LoadPrep(r.Context(), h.store, payload.SessionID)
		switch {
		case err == nil:
			req.Analysis = record.Analysis
			if req.Resume == nil {
				req.Resume = record.Resume
			}
		case !errors.Is(err, storage.ErrNotFound):
			log.Printf("[sessions] prep unavailable for %s: %v", payload.SessionID, err)
		}
	}

	resume, err := h.enhancer.Enhance(r.Context(), req)
	if errors.Is(err, enhancement.ErrEmptyTranscript) {
		utils.RespondError(w, http.StatusBadRequest, "transcript is required")
		return
	}
	if err != nil {
		log.Printf("[sessions] resume enhancement failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "profile generation failed")
		return
	}

	if payload.SessionID != "" {
		if err := storage.SaveEnhancedResume(r.Context(), h.store, payload.SessionID, resume); err != nil {
			log.Printf("[sessions] failed to save enhanced resume for %s: %v", payload.SessionID, err)
		}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": payload.SessionID,
		"profile":    resume,
	})
}

func (h *Handler) respondLoadError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, storage.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, notFound)
		return
	}
	log.Printf("[sessions] load failed: %v", err)
	utils.RespondError(w, http.StatusInternalServerError, "failed to read session")
}
