package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tesserae/tess-jobs/pkg/requestid"
)

// RequestID takes the request id from the incoming header, falls back to the one chi may
// have assigned and otherwise generates one. The id is stored in the request context and
// echoed on the response so clients can quote it when reporting a failed submission.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestid.Header)
		if id == "" {
			id = middleware.GetReqID(r.Context())
		}
		if id == "" {
			id = requestid.Generate()
		}

		w.Header().Set(requestid.Header, id)
		next.ServeHTTP(w, r.WithContext(requestid.ToContext(r.Context(), id)))
	})
}
