package controllers

import (
	"net/http"

	"github.com/okabe-lab/assetdesk-backend/api/responses"
	"github.com/okabe-lab/assetdesk-backend/api/validators"
	loansvc "github.com/okabe-lab/assetdesk-backend/internal/loans"
	"github.com/okabe-lab/assetdesk-backend/pkg/logger"
)

// LoansList returns a cursor-paginated page of loan requests.
func LoansList(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// LoanGet returns a single loan with its item and applicant.
func LoanGet(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loan, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loan)
	}
}

// LoanSubmit files a loan request for the authenticated user.
func LoanSubmit(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload loansvc.SubmitLoanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loan, err := svc.Submit(r.Context(), actor, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, loan)
	}
}

// LoanModify retargets a still-pending loan request.
func LoanModify(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload loansvc.ModifyLoanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loan, err := svc.Modify(r.Context(), id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loan)
	}
}

// LoanDelete withdraws a still-pending loan request.
func LoanDelete(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// LoanApprove approves a pending loan and reserves its item.
func LoanApprove(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(svc, logg, true)
}

// LoanReject rejects a pending loan and leaves its item untouched.
func LoanReject(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(svc, logg, false)
}

func decide(svc loansvc.Service, logg *logger.Logger, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loan, err := svc.Decide(r.Context(), id, approve)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loan)
	}
}
