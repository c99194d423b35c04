package session

import (
	"encoding/json"
	"net/http"
)

// AuthPath is where pages send unauthenticated visitors
const AuthPath = "/auth"

// RequireAPI rejects requests without a session with 401
func (r *Resolver) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := r.Resolve(req)
		if id == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, req.WithContext(NewContext(req.Context(), id)))
	})
}

// RequirePage redirects requests without a session to the auth entry point
func (r *Resolver) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := r.Resolve(req)
		if id == nil {
			http.Redirect(w, req, AuthPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, req.WithContext(NewContext(req.Context(), id)))
	})
}
