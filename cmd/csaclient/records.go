package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/repository"
)

// handleListRecords handles GET /records
func (app *application) handleListRecords(w http.ResponseWriter, _ *http.Request) {
	app.writeJSON(w, http.StatusOK, app.Repository.ListRecords())
}

// handleGetRecord handles GET /records/{id}
func (app *application) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return
	}

	rec, err := app.Repository.GetRecord(id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	app.writeJSON(w, http.StatusOK, rec)
}

func (app *application) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.Logger.Error("writing response", zap.Error(err))
	}
}
