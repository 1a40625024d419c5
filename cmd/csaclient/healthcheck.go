package main

import (
	"net/http"
	"time"
)

// handleHealth handles the GET /health endpoint
func (app *application) handleHealth(w http.ResponseWriter, _ *http.Request) {
	app.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  app.Manager.State().String(),
		"uptime": time.Since(app.StartTime).Round(time.Second).String(),
	})
}
