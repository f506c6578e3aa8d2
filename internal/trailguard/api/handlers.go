package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/metrics"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/playbook"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/rules"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/runner"
)

func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
	}
}

// writeError logs the full error and sends only message to the client.
func (a *API) writeError(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		a.logger.Errorw(message, "error", err.Error(), "status_code", statusCode)
	} else {
		a.logger.Warnw(message, "status_code", statusCode)
	}
	a.respondJSON(w, map[string]string{"error": message}, statusCode)
}

func (a *API) scanDir(w http.ResponseWriter, r *http.Request) {
	a.scan(w, r, "dir")
}

func (a *API) scanS3(w http.ResponseWriter, r *http.Request) {
	a.scan(w, r, "s3")
}

func (a *API) scan(w http.ResponseWriter, r *http.Request, kind string) {
	src, err := a.sources(r.Context(), kind)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to open event source", err)
		return
	}

	res, err := runner.RunScan(r.Context(), src, a.engine, a.store, a.cfg)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "scan failed", err)
		return
	}
	a.respondJSON(w, res, http.StatusOK)
}

// parseAlertFilter reads the alert query parameters. Unparseable or negative
// hours_back and limit values are dropped rather than rejected.
func parseAlertFilter(r *http.Request) alert.Filter {
	q := r.URL.Query()
	f := alert.Filter{
		Severity: q.Get("severity"),
		Rule:     q.Get("rule"),
		ScanID:   q.Get("scan_id"),
	}
	if v := q.Get("hours_back"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 {
			f.HoursBack = alert.Hours(h)
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.Limit = n
		}
	}
	return f
}

func (a *API) getAlerts(w http.ResponseWriter, r *http.Request) {
	f := parseAlertFilter(r)

	ctx := r.Context()
	if a.cfg.Store.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Store.Timeout)
		defer cancel()
	}

	alerts, err := a.store.Query(ctx, f)
	metrics.StoreOperations.WithLabelValues("query", metrics.Status(err)).Inc()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, alert.ErrInvalidFilter) {
			status = http.StatusBadRequest
		}
		a.writeError(w, status, "failed to query alerts", err)
		return
	}
	a.respondJSON(w, playbook.Attach(alerts), http.StatusOK)
}

type ruleView struct {
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Severity alert.Severity `json:"severity"`
	Score    int            `json:"score"`
}

func (a *API) getRules(w http.ResponseWriter, r *http.Request) {
	table := rules.Table()
	out := make([]ruleView, 0, len(table))
	for _, rule := range table {
		out = append(out, ruleView{Name: rule.Name, Category: rule.Category, Severity: rule.Severity, Score: rule.Score})
	}
	a.respondJSON(w, out, http.StatusOK)
}

func (a *API) getPlaybooks(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]playbook.Entry)
	for _, name := range playbook.Rules() {
		e, _ := playbook.Lookup(name)
		out[name] = e
	}
	a.respondJSON(w, out, http.StatusOK)
}

func (a *API) getPlaybook(w http.ResponseWriter, r *http.Request) {
	rule := mux.Vars(r)["rule"]
	e, ok := playbook.Lookup(rule)
	if !ok {
		a.writeError(w, http.StatusNotFound, "no playbook for rule", nil)
		return
	}
	a.respondJSON(w, e, http.StatusOK)
}

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if a.store == nil {
		status = "degraded"
	}
	a.respondJSON(w, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}
