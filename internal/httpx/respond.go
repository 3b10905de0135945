package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kasirkit/poscore/internal/approval"
	"github.com/kasirkit/poscore/internal/ledger"
	"github.com/kasirkit/poscore/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain failures to user-facing statuses. Anything not in
// the taxonomy is a persistence fault: logged with context here, surfaced
// as an opaque 500.
func writeErr(w http.ResponseWriter, log *zap.Logger, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrRequestNotFound),
		errors.Is(err, ledger.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, approval.ErrInvalidAction):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, approval.ErrRequestResolved):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		var stock *ledger.InsufficientStockError
		if errors.As(err, &stock) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": stock.Error()})
			return
		}
		log.Error("request failed", append(fields, zap.Error(err))...)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// tenantID and userID come from the authenticating proxy in front of
// this service; an empty tenant is rejected before any handler logic.
func tenantID(r *http.Request) string { return r.Header.Get("X-Tenant-ID") }
func userID(r *http.Request) string   { return r.Header.Get("X-User-ID") }
