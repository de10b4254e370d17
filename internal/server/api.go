package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/generator"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/mietzen/catch-all-autofill/internal/tasks"
)

const maxBodyBytes = 64 << 10

// Issuer issues aliases for a site. [tasks.AliasService] satisfies it.
type Issuer interface {
	Issue(ctx context.Context, site string, record bool) (*tasks.IssueResult, error)
}

// UsageLog is the read and delete side of the usage log.
type UsageLog interface {
	All(ctx context.Context) ([]models.UsageRecord, error)
	ListByDomain(ctx context.Context, domain string) ([]models.UsageRecord, error)
	Search(ctx context.Context, query string) ([]models.UsageRecord, error)
	Delete(ctx context.Context, record models.UsageRecord) (bool, error)
}

// IssueRequest is the body of POST /aliases. Record defaults to true.
type IssueRequest struct {
	Site   string `json:"site"`
	Record *bool  `json:"record,omitempty"`
}

// IssueResponse is the body returned for an issued alias.
type IssueResponse struct {
	GeneratedEmail string `json:"generatedEmail"`
	Domain         string `json:"domain,omitempty"`
	Date           string `json:"date,omitempty"`
	Attempts       int    `json:"attempts"`
	Degraded       bool   `json:"degraded,omitempty"`
}

// ListResponse is the body of GET /aliases.
type ListResponse struct {
	Count   int                     `json:"count"`
	Aliases []models.BackupLogEntry `json:"aliases"`
}

type validateRequest struct {
	Email string `json:"email"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// API serves the alias endpoints.
type API struct {
	issuer Issuer
	usage  UsageLog
	logger *log.Logger
}

// NewAPI creates an API.
func NewAPI(issuer Issuer, usage UsageLog, logger *log.Logger) *API {
	return &API{issuer: issuer, usage: usage, logger: logger}
}

// Register adds all API routes to router.
func (a *API) Register(router Router) {
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(a.health))
	router.Handle(http.MethodPost, "/validate", http.HandlerFunc(a.validate))
	router.Handler(a)
}

// NewHandler builds a router serving the API with logging and panic recovery.
func NewHandler(api *API, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	api.Register(router)
	return router
}

// Routes returns the alias collection patterns.
func (a *API) Routes() []string {
	return []string{"GET /aliases", "POST /aliases", "DELETE /aliases"}
}

// ServeHTTP dispatches /aliases by method.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.list(w, r)
	case http.MethodPost:
		a.issue(w, r)
	case http.MethodDelete:
		a.delete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) issue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, err)
		return
	}

	record := req.Record == nil || *req.Record
	result, err := a.issuer.Issue(r.Context(), req.Site, record)
	if err != nil {
		a.fail(w, err)
		return
	}

	resp := IssueResponse{
		GeneratedEmail: result.Alias.Address,
		Attempts:       result.Alias.Attempts,
		Degraded:       result.Alias.Degraded,
	}
	status := http.StatusOK
	if result.Record != nil {
		resp.Domain = result.Record.Domain
		resp.Date = result.Record.Timestamp()
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	var (
		records []models.UsageRecord
		err     error
	)

	query := r.URL.Query()
	switch {
	case query.Get("domain") != "":
		records, err = a.usage.ListByDomain(r.Context(), tasks.SiteDomain(query.Get("domain")))
	case query.Get("q") != "":
		records, err = a.usage.Search(r.Context(), query.Get("q"))
	default:
		records, err = a.usage.All(r.Context())
	}
	if err != nil {
		a.fail(w, err)
		return
	}

	models.SortNewestFirst(records)
	entries := make([]models.BackupLogEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, rec.Entry())
	}
	writeJSON(w, http.StatusOK, ListResponse{Count: len(entries), Aliases: entries})
}

func (a *API) delete(w http.ResponseWriter, r *http.Request) {
	var entry models.BackupLogEntry
	if err := decode(w, r, &entry); err != nil {
		a.fail(w, err)
		return
	}
	if entry.GeneratedEmail == "" {
		a.fail(w, fmt.Errorf("%w: generatedEmail is required", shared.ErrMissingArgument))
		return
	}

	at, err := models.ParseTimestamp(entry.Date)
	if err != nil {
		a.fail(w, fmt.Errorf("%w: date: %w", shared.ErrInvalidInput, err))
		return
	}

	deleted, err := a.usage.Delete(r.Context(), models.UsageRecord{Domain: entry.Domain, Alias: entry.GeneratedEmail, CreatedAt: at})
	if err != nil {
		a.fail(w, err)
		return
	}
	if !deleted {
		a.fail(w, fmt.Errorf("%w: %s", shared.ErrNotFound, entry.GeneratedEmail))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generator.Validate(req.Email))
}

func (a *API) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "err", err)
	} else {
		a.logger.Debug("request rejected", "status", status, "err", err)
	}
	writeError(w, status, err.Error())
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrNoDomainConfigured),
		errors.Is(err, shared.ErrDuplicateRecord):
		return http.StatusConflict
	case errors.Is(err, shared.ErrGenerationExhausted),
		errors.Is(err, shared.ErrNoWordlist):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") && r.Header.Get("Content-Type") != "" {
		return fmt.Errorf("%w: expected application/json", shared.ErrInvalidInput)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
