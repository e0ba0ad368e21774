// internal/handlers/reports/reports.go
package reports

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	httpserver "worktrack/internal/http"
	"worktrack/internal/models"
	"worktrack/internal/report"
)

type Handler struct {
	engine *report.Engine
}

func New(engine *report.Engine) *Handler { return &Handler{engine: engine} }

type buildRequest struct {
	GroupBy    string    `json:"group_by"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	PersonIDs  []string  `json:"person_ids"`
	AssetIDs   []string  `json:"asset_ids"`
	Kinds      []string  `json:"kinds"`
	SplitByDay bool      `json:"split_by_day"`
}

// Build handles POST /reports with a window, grouping key and filters.
func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var body buildRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&body); err != nil {
		httpserver.Error(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if dec.More() {
		httpserver.Error(w, http.StatusBadRequest, "invalid JSON (extra content)")
		return
	}

	req := report.Request{
		GroupBy:    report.GroupBy(body.GroupBy),
		From:       body.From.UTC(),
		To:         body.To.UTC(),
		SplitByDay: body.SplitByDay,
	}
	var ok bool
	if req.PersonIDs, ok = parseIDs(w, body.PersonIDs, "person_ids"); !ok {
		return
	}
	if req.AssetIDs, ok = parseIDs(w, body.AssetIDs, "asset_ids"); !ok {
		return
	}
	for _, k := range body.Kinds {
		req.Kinds = append(req.Kinds, models.Kind(k))
	}

	rows, err := h.engine.BuildReport(r.Context(), req)
	if err != nil {
		status, msg := httpserver.ErrorStatus(err, "report failed")
		httpserver.Error(w, status, msg)
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": rows})
}

func parseIDs(w http.ResponseWriter, in []string, field string) ([]uuid.UUID, bool) {
	var out []uuid.UUID
	for _, s := range in {
		id, err := uuid.Parse(s)
		if err != nil {
			httpserver.Error(w, http.StatusBadRequest, "invalid "+field)
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}
