package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aurelhart/scoreline-backend/api/responses"
	"github.com/aurelhart/scoreline-backend/api/validators"
	"github.com/aurelhart/scoreline-backend/internal/extledger"
	"github.com/aurelhart/scoreline-backend/internal/notifications"
	internalorders "github.com/aurelhart/scoreline-backend/internal/orders"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"github.com/aurelhart/scoreline-backend/pkg/pagination"
)

type attemptLister interface {
	ListByOrder(ctx context.Context, orderID string) ([]notifications.AttemptDTO, error)
}

type confirmationResender interface {
	ResendConfirmation(ctx context.Context, orderID string) (notifications.AttemptDTO, error)
}

type statusMirror interface {
	MirrorStatus(ctx context.Context, order internalorders.OrderDTO) extledger.MirrorResult
}

type assetCacheReader interface {
	CacheStats() (count int, totalBytes int64, err error)
}

// Get returns a single order by its public order id.
func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		order, err := svc.Get(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListByCustomer returns a cursor page of a customer's orders.
func ListByCustomer(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "customer email required").WithDetails(map[string]any{"field": "email"}))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.ListByCustomer(r.Context(), email, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Stats returns ledger-wide totals and revenue, plus a snapshot of the local
// asset cache. A cache read failure degrades to orders-only output.
func Stats(svc internalorders.Service, cache assetCacheReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{"orders": stats}
		if cache != nil {
			count, totalBytes, err := cache.CacheStats()
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "asset cache stats failed", err)
				}
			} else {
				payload["asset_cache"] = map[string]any{
					"files":       count,
					"total_bytes": totalBytes,
				}
			}
		}
		responses.WriteSuccess(w, payload)
	}
}

type updateStatusRequest struct {
	Status        string  `json:"status" validate:"required"`
	FailureReason *string `json:"failure_reason,omitempty" validate:"omitempty,max=500"`
}

// UpdateStatus transitions an order's lifecycle state. The change is mirrored
// to the external ledger on a best effort basis after the local write commits.
func UpdateStatus(svc internalorders.Service, mirror statusMirror, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").WithDetails(map[string]any{"field": "status"}))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), internalorders.UpdateStatusInput{
			Status:        status,
			FailureReason: req.FailureReason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if mirror != nil {
			mirror.MirrorStatus(r.Context(), *order)
		}

		responses.WriteSuccess(w, order)
	}
}

// ResendConfirmation re-resolves the asset for a completed order and sends the
// purchase confirmation again.
func ResendConfirmation(resender confirmationResender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resender == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		attempt, err := resender.ResendConfirmation(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, attempt)
	}
}

// ListAttempts returns the notification attempts recorded for an order.
func ListAttempts(svc internalorders.Service, attempts attemptLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || attempts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID := chi.URLParam(r, "orderID")
		if _, err := svc.Get(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := attempts.ListByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"attempts": list})
	}
}
