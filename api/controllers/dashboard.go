package controllers

import (
	"net/http"

	"github.com/okabe-lab/assetdesk-backend/api/responses"
	dashsvc "github.com/okabe-lab/assetdesk-backend/internal/dashboard"
	"github.com/okabe-lab/assetdesk-backend/pkg/logger"
)

// Dashboard returns entity counts plus the most recent pending loan requests.
func Dashboard(svc dashsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
