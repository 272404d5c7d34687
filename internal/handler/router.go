package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	interviewHandler "github.com/zhouzirui/z-interview/backend/internal/handler/interview"
	prepHandler "github.com/zhouzirui/z-interview/backend/internal/handler/prep"
	sessionsHandler "github.com/zhouzirui/z-interview/backend/internal/handler/sessions"
	tenantHandler "github.com/zhouzirui/z-interview/backend/internal/handler/tenant"
	middlewarePkg "github.com/zhouzirui/z-interview/backend/internal/middleware"
	tenantModel "github.com/zhouzirui/z-interview/backend/internal/model/tenant"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

// Deps are the services exposed over HTTP. Pipeline and Interview may be nil
// when no chat model is configured.
type Deps struct {
	Tenants     tenantModel.Store
	Store       storage.Store
	Pipeline    prepHandler.Runner
	Extractor   sessionsHandler.Extractor
	Enhancer    sessionsHandler.Enhancer
	Interview   *interviewHandler.WebSocketHandler
	CORSOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.CORSOrigins))

	tenants := deps.Tenants
	if tenants == nil {
		tenants = tenantModel.NewMemoryStore(nil)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "healthy",
				"pipeline": deps.Pipeline != nil,
				"realtime": deps.Interview != nil,
				"enhancer": deps.Enhancer != nil,
			})
		})

		tenantHandler.New(tenants).RegisterRoutes(api)

		if deps.Store != nil {
			sessionsHandler.New(deps.Store, deps.Extractor, deps.Enhancer).RegisterRoutes(api)
		}

		if deps.Pipeline != nil {
			prepHandler.New(deps.Pipeline, tenants, deps.Store).RegisterRoutes(api)
		} else {
			unavailable := func(w http.ResponseWriter, r *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "preparation pipeline unavailable")
			}
			api.Post("/prep", unavailable)
			api.Post("/prep/stream", unavailable)
		}

		if deps.Interview != nil {
			deps.Interview.RegisterRoutes(api)
		}
	})

	return r
}
