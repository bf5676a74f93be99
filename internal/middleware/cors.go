// Package middleware holds the HTTP middleware shared by the guard's
// endpoints.
package middleware

import "net/http"

// CORS allows the guard to be fetched from any origin. The script endpoint
// is embedded cross-origin by design (a script tag on arbitrary merchant
// domains), so the surface is permissive on purpose.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
