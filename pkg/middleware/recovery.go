package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
)

// Recovery middleware recovers from panics, logs them and answers 500 JSON
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				Logger(r.Context()).Error("Panic recovered",
					"error", err,
					"stack_trace", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   http.StatusText(http.StatusInternalServerError),
					"message": "unexpected server error",
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
