package handlers

import (
	"encoding/json"
	"net/http"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/middleware"
	"mediagen/internal/pipeline"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Pipeline *pipeline.Pipeline
	Ledger   domain.CreditLedger
	Logger   infra.Logger
}

func NewApp(p *pipeline.Pipeline, ledger domain.CreditLedger, logger infra.Logger) *App {
	return &App{Pipeline: p, Ledger: ledger, Logger: logger}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
