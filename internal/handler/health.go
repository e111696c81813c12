package handler

import (
	"encoding/json"
	"net/http"

	"github.com/msomdec/kormkit/internal/korm"
)

// HandleHealthz responds with a 200 OK and a JSON body indicating the server is healthy.
func HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleReadyz pings every registered database through the request's
// factory. It responds 503 when any database cannot be reached.
func HandleReadyz(svc *korm.Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, release := requestFactory(r, svc)
		defer release()

		status := http.StatusOK
		databases := make(map[string]string)
		for _, name := range svc.Registry().Names() {
			db, err := f.Database(r.Context(), name)
			if err == nil {
				err = db.SQL().PingContext(r.Context())
			}
			if err != nil {
				status = http.StatusServiceUnavailable
				databases[name] = err.Error()
				continue
			}
			databases[name] = "ok"
		}

		body := map[string]any{"status": "ok", "databases": databases}
		if status != http.StatusOK {
			body["status"] = "unavailable"
		}
		writeJSON(w, status, body)
	}
}
