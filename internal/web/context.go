package web

import (
	"net/http"

	"github.com/JonMunkholm/planbook/internal/core"
)

// clientInfo attaches the caller's IP and User-Agent to the request context
// for audit logging. RemoteAddr is already resolved by TrustedRealIP.
func clientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClient(r.Context(), core.ClientInfo{
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
