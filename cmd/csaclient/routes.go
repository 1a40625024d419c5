package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", app.handleHealth)
	mux.HandleFunc("GET /ws", app.authenticate(app.handleWebSocket))
	mux.HandleFunc("GET /records", app.authenticate(app.handleListRecords))
	mux.HandleFunc("GET /records/{id}", app.authenticate(app.handleGetRecord))

	return mux
}
