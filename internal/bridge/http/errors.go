package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/idbridge/internal/bridge/service"
	"github.com/aussiebroadwan/idbridge/pkg/httpx"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
	"github.com/aussiebroadwan/idbridge/pkg/slogx"
)

const (
	reasonProviderUnreachable = "provider unreachable"
	reasonProviderError       = "provider error"
	reasonProviderRejected    = "provider rejected request"
	reasonInternal            = "internal error"
)

// statusFor maps a gate, reconcile or provider failure onto the status code
// and the reason shown to the client.
func statusFor(err error) (int, string) {
	var gateErr *service.GateError
	if errors.As(err, &gateErr) {
		if gateErr.Kind == service.GateUnauthenticated {
			return http.StatusUnauthorized, gateErr.Reason
		}
		return http.StatusForbidden, gateErr.Reason
	}

	var recErr *service.ReconcileError
	if errors.As(err, &recErr) {
		return http.StatusForbidden, recErr.Error()
	}

	var provErr *providersdk.Error
	if errors.As(err, &provErr) {
		switch provErr.Kind {
		case providersdk.KindRejected:
			if provErr.Reason != "" {
				return http.StatusForbidden, provErr.Reason
			}
			return http.StatusForbidden, reasonProviderRejected
		case providersdk.KindUnreachable:
			return http.StatusGatewayTimeout, reasonProviderUnreachable
		default:
			return http.StatusBadGateway, reasonProviderError
		}
	}

	return http.StatusInternalServerError, reasonInternal
}

// writeFailure writes the error envelope for err. Anything that ends up as a
// 5xx is logged with its cause; the client only sees the reason.
func writeFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	code, reason := statusFor(err)

	log := slogx.FromContext(r.Context())
	if code >= http.StatusInternalServerError {
		log.Error(msg, "status", code, "err", err)
	} else {
		log.Info(msg, "status", code, "reason", reason, "err", err)
	}

	httpx.WriteError(w, code, reason)
}
