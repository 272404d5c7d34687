package tenant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-interview/backend/internal/model/tenant"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

// Handler 租户配置的HTTP处理器
type Handler struct {
	tenants tenant.Store
}

// New 创建租户处理器
func New(tenants tenant.Store) *Handler {
	return &Handler{
		tenants: tenants,
	}
}

// RegisterRoutes 注册租户相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tenants", h.handleListTenants)
	r.Get("/tenants/{tenantID}/context", h.handleResolve)
}

// handleListTenants 列出所有租户
func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants := h.tenants.List()
	if len(tenants) == 0 {
		tenants = []tenant.Tenant{tenant.Default()}
	}
	utils.RespondJSON(w, http.StatusOK, tenants)
}

// handleResolve 返回租户与岗位解析后的提示词上下文
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenantID")
	t, ok := h.tenants.FindByID(id)
	if !ok && id != tenant.DefaultID {
		utils.RespondError(w, http.StatusNotFound, "tenant not found")
		return
	}
	if !ok {
		t = tenant.Default()
	}

	ctx := tenant.Resolve(t, r.URL.Query().Get("position"))
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"context":     ctx,
		"promptBlock": ctx.PromptBlock(),
	})
}
