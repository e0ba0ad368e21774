// internal/handlers/workitems/workitems.go
package workitems

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpserver "worktrack/internal/http"
	"worktrack/internal/middleware"
	"worktrack/internal/models"
	"worktrack/internal/repo"
	"worktrack/internal/workflow"
)

type Handler struct {
	machine *workflow.Machine
}

func New(machine *workflow.Machine) *Handler { return &Handler{machine: machine} }

type createRequest struct {
	Kind           string  `json:"kind"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Classification *string `json:"classification"`
	Type           string  `json:"type"`
	AssignedPerson *string `json:"assigned_person_id"`
	AssetID        *string `json:"asset_id"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if !decode(w, r, &body) {
		return
	}
	in := workflow.CreateInput{
		Kind:        models.Kind(body.Kind),
		Title:       body.Title,
		Description: body.Description,
		Type:        models.WorkOrderType(body.Type),
	}
	if body.Classification != nil {
		c := models.Classification(*body.Classification)
		in.Classification = &c
	}
	var ok bool
	if in.AssignedPerson, ok = parseOptionalID(w, body.AssignedPerson, "assigned_person_id"); !ok {
		return
	}
	if in.AssetID, ok = parseOptionalID(w, body.AssetID, "asset_id"); !ok {
		return
	}
	wi, err := h.machine.Create(r.Context(), in, actor(r))
	if err != nil {
		status, msg := httpserver.ErrorStatus(err, "create failed")
		httpserver.Error(w, status, msg)
		return
	}
	httpserver.JSON(w, http.StatusCreated, wi)
}

// transition serves the four dedicated lifecycle actions.
func (h *Handler) transition(action func(*http.Request, uuid.UUID) (models.WorkItem, error), failMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		wi, err := action(r, id)
		if err != nil {
			status, msg := httpserver.ErrorStatus(err, failMsg)
			httpserver.Error(w, status, msg)
			return
		}
		httpserver.JSON(w, http.StatusOK, wi)
	}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(func(r *http.Request, id uuid.UUID) (models.WorkItem, error) {
		return h.machine.Start(r.Context(), id, actor(r))
	}, "start failed")(w, r)
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.transition(func(r *http.Request, id uuid.UUID) (models.WorkItem, error) {
		return h.machine.Stop(r.Context(), id, actor(r))
	}, "stop failed")(w, r)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(func(r *http.Request, id uuid.UUID) (models.WorkItem, error) {
		return h.machine.Cancel(r.Context(), id, actor(r))
	}, "cancel failed")(w, r)
}

func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(func(r *http.Request, id uuid.UUID) (models.WorkItem, error) {
		return h.machine.Reopen(r.Context(), id, actor(r))
	}, "reopen failed")(w, r)
}

type patchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`

	AssignedPerson *string `json:"assigned_person_id"`
	ClearAssignee  bool    `json:"clear_assignee"`
	AssetID        *string `json:"asset_id"`
	ClearAsset     bool    `json:"clear_asset"`

	StartAt    *time.Time `json:"start_at"`
	ClearStart bool       `json:"clear_start"`
	StopAt     *time.Time `json:"stop_at"`
	ClearStop  bool       `json:"clear_stop"`

	Classification      *string `json:"classification"`
	ClearClassification bool    `json:"clear_classification"`
	Type                *string `json:"type"`

	Defect   *string `json:"defect"`
	Cause    *string `json:"cause"`
	Solution *string `json:"solution"`

	Status *string `json:"status"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body patchRequest
	if !decode(w, r, &body) {
		return
	}
	patch := workflow.UpdatePatch{
		Title:               body.Title,
		Description:         body.Description,
		ClearAssignee:       body.ClearAssignee,
		ClearAsset:          body.ClearAsset,
		StartAt:             body.StartAt,
		ClearStart:          body.ClearStart,
		StopAt:              body.StopAt,
		ClearStop:           body.ClearStop,
		ClearClassification: body.ClearClassification,
		Defect:              body.Defect,
		Cause:               body.Cause,
		Solution:            body.Solution,
	}
	if patch.AssignedPerson, ok = parseOptionalID(w, body.AssignedPerson, "assigned_person_id"); !ok {
		return
	}
	if patch.AssetID, ok = parseOptionalID(w, body.AssetID, "asset_id"); !ok {
		return
	}
	if body.Classification != nil {
		c := models.Classification(*body.Classification)
		patch.Classification = &c
	}
	if body.Type != nil {
		t := models.WorkOrderType(*body.Type)
		patch.Type = &t
	}
	if body.Status != nil {
		s := models.Status(*body.Status)
		patch.Status = &s
	}
	wi, err := h.machine.Update(r.Context(), id, patch, actor(r))
	if err != nil {
		status, msg := httpserver.ErrorStatus(err, "update failed")
		httpserver.Error(w, status, msg)
		return
	}
	httpserver.JSON(w, http.StatusOK, wi)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wi, err := h.machine.Get(r.Context(), id)
	if err != nil {
		status, msg := httpserver.ErrorStatus(err, "lookup failed")
		httpserver.Error(w, status, msg)
		return
	}
	httpserver.JSON(w, http.StatusOK, wi)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var f repo.WorkItemFilter
	if kind := r.URL.Query().Get("kind"); kind != "" {
		f.Kinds = []models.Kind{models.Kind(kind)}
	}
	if pid := r.URL.Query().Get("person_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			httpserver.Error(w, http.StatusBadRequest, "invalid person_id")
			return
		}
		f.PersonIDs = []uuid.UUID{id}
	}
	if aid := r.URL.Query().Get("asset_id"); aid != "" {
		id, err := uuid.Parse(aid)
		if err != nil {
			httpserver.Error(w, http.StatusBadRequest, "invalid asset_id")
			return
		}
		f.AssetIDs = []uuid.UUID{id}
	}
	items, err := h.machine.List(r.Context(), f)
	if err != nil {
		status, msg := httpserver.ErrorStatus(err, "list failed")
		httpserver.Error(w, status, msg)
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": items})
}

// Events serves the ordered audit log for one item.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	events, err := h.machine.GetEvents(r.Context(), id)
	if err != nil {
		status, msg := httpserver.ErrorStatus(err, "event lookup failed")
		httpserver.Error(w, status, msg)
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": events})
}

func actor(r *http.Request) string {
	a, _ := middleware.GetActorID(r.Context())
	return a
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.Error(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalID(w http.ResponseWriter, s *string, field string) (*uuid.UUID, bool) {
	if s == nil {
		return nil, true
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		httpserver.Error(w, http.StatusBadRequest, "invalid "+field)
		return nil, false
	}
	return &id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)) // 1MB
	if err := dec.Decode(dst); err != nil {
		httpserver.Error(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	if dec.More() {
		httpserver.Error(w, http.StatusBadRequest, "invalid JSON (extra content)")
		return false
	}
	return true
}
