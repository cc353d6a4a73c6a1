package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/taskdesk/taskdesk/internal/platform/httpx"
	"github.com/taskdesk/taskdesk/internal/rbac"
	"github.com/taskdesk/taskdesk/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// ResourceAudit is the permission resource guarding the audit log.
const ResourceAudit = "audit"

// MountRoutes mendaftarkan endpoint audit timeline dan ekspor CSV. The
// router must already authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Message(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(h.rbac.Require(rbac.Needs(ResourceAudit, rbac.ActionRead), ""))
		gr.Get("/", h.handleTimeline)
		gr.With(limiter).Get("/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if ac, ok := shared.AuthFromContext(r.Context()); ok && ac.IdentityID != "" {
		return "identity:" + ac.IdentityID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
