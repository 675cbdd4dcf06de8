package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mota-project/microservices/planning-service/board"
	"mota-project/microservices/planning-service/logging"
	"mota-project/microservices/planning-service/models"
	"mota-project/microservices/planning-service/repositories"
	"mota-project/microservices/planning-service/services"
)

var (
	anyRole     = []string{"manager", "member"}
	managerOnly = []string{"manager"}
)

type BoardHandler struct {
	service *services.BoardService
}

func NewBoardHandler(service *services.BoardService) *BoardHandler {
	return &BoardHandler{service: service}
}

// Routes registers the board API on r.
func (h *BoardHandler) Routes(r *mux.Router) {
	r.HandleFunc("/members", h.GetMembers).Methods(http.MethodGet)
	r.HandleFunc("/projects", h.GetProjects).Methods(http.MethodGet)

	r.HandleFunc("/boards/{projectId}/kanban/columns", h.GetColumns).Methods(http.MethodGet)
	r.HandleFunc("/boards/{projectId}/kanban/columns/order", h.ReorderColumns).Methods(http.MethodPut)
	r.HandleFunc("/boards/{projectId}/kanban/columns/{columnId}", h.UpdateColumn).Methods(http.MethodPatch)
	r.HandleFunc("/boards/{projectId}/kanban/columns/{columnId}/items", h.ClearColumn).Methods(http.MethodDelete)
	r.HandleFunc("/boards/{projectId}/backlog/iterations", h.GetIterations).Methods(http.MethodGet)
	r.HandleFunc("/boards/{projectId}/backlog/iterations/recount", h.RecountIterations).Methods(http.MethodPost)

	b := r.PathPrefix("/boards/{projectId}/{view}").Subrouter()
	b.HandleFunc("/items", h.GetItems).Methods(http.MethodGet)
	b.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost)
	b.HandleFunc("/items/{itemId}", h.UpdateItem).Methods(http.MethodPatch)
	b.HandleFunc("/items/{itemId}", h.DeleteItem).Methods(http.MethodDelete)
	b.HandleFunc("/items/{itemId}/copy", h.CopyItem).Methods(http.MethodPost)
	b.HandleFunc("/swimlanes", h.GetSwimlanes).Methods(http.MethodGet)
	b.HandleFunc("/reorder", h.Reorder).Methods(http.MethodPost)
	b.HandleFunc("/move", h.Move).Methods(http.MethodPost)
	b.HandleFunc("/drag/begin", h.BeginDrag).Methods(http.MethodPost)
	b.HandleFunc("/drag/hover", h.HoverDrag).Methods(http.MethodPost)
	b.HandleFunc("/drag/drop", h.DropDrag).Methods(http.MethodPost)
	b.HandleFunc("/drag/cancel", h.CancelDrag).Methods(http.MethodPost)
	b.HandleFunc("/bulk/move", h.BulkMove).Methods(http.MethodPost)
	b.HandleFunc("/bulk/assign", h.BulkAssign).Methods(http.MethodPost)
	b.HandleFunc("/bulk/delete", h.BulkDelete).Methods(http.MethodPost)
	b.HandleFunc("/notifications", h.GetNotifications).Methods(http.MethodGet)
}

func checkRole(r *http.Request, allowedRoles []string) error {
	userRole := r.Header.Get("Role")
	if userRole == "" {
		return fmt.Errorf("role is missing in request header")
	}
	for _, role := range allowedRoles {
		if role == userRole {
			return nil
		}
	}
	return fmt.Errorf("access forbidden: user does not have the required role")
}

func authorize(w http.ResponseWriter, r *http.Request, allowedRoles []string) bool {
	if err := checkRole(r, allowedRoles); err != nil {
		http.Error(w, "Access forbidden: insufficient permissions", http.StatusForbidden)
		return false
	}
	return true
}

func boardKey(r *http.Request) services.BoardKey {
	vars := mux.Vars(r)
	return services.BoardKey{Project: vars["projectId"], View: models.View(vars["view"])}
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["itemId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid item ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response: %v", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, board.ErrItemNotFound),
		errors.Is(err, board.ErrUnknownPartition),
		errors.Is(err, board.ErrUnknownColumn),
		errors.Is(err, services.ErrUnknownProject),
		errors.Is(err, services.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, board.ErrWIPLimitExceeded),
		errors.Is(err, board.ErrDragInProgress),
		errors.Is(err, board.ErrNotDragging),
		errors.Is(err, board.ErrDuplicateItem):
		return http.StatusConflict
	case errors.Is(err, board.ErrInvalidSequence),
		errors.Is(err, board.ErrInvalidStoryPoints),
		errors.Is(err, board.ErrInvalidPriority),
		errors.Is(err, board.ErrInvalidType),
		errors.Is(err, board.ErrInvalidWIPLimit),
		errors.Is(err, board.ErrEmptyName),
		errors.Is(err, services.ErrUnknownMember):
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		logging.Logger.Infof("Event ID: REQUEST_REJECTED, Description: %s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	http.Error(w, err.Error(), status)
}

func filterFrom(r *http.Request) board.Filter {
	q := r.URL.Query()
	return board.Filter{
		Partition: q.Get("partition"),
		Project:   q.Get("project"),
		Type:      q.Get("type"),
		Priority:  q.Get("priority"),
		Assignee:  q.Get("assignee"),
		Iteration: q.Get("iteration"),
		Search:    q.Get("search"),
	}
}

func (h *BoardHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	writeJSON(w, http.StatusOK, h.service.Members())
}

func (h *BoardHandler) GetProjects(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	writeJSON(w, http.StatusOK, h.service.Projects())
}

func (h *BoardHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	page, err := h.service.Items(r.Context(), boardKey(r), filterFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *BoardHandler) GetSwimlanes(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	mode := board.SwimlaneMode(r.URL.Query().Get("mode"))
	lanes, err := h.service.Swimlanes(r.Context(), boardKey(r), filterFrom(r), mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lanes)
}

func (h *BoardHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	var item models.WorkItem
	if !decode(w, r, &item) {
		return
	}
	created, err := h.service.CreateItem(r.Context(), boardKey(r), &item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *BoardHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	var patch models.ItemPatch
	if !decode(w, r, &patch) {
		return
	}
	updated, err := h.service.UpdateItem(r.Context(), boardKey(r), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *BoardHandler) CopyItem(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	dup, err := h.service.CopyItem(r.Context(), boardKey(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

func (h *BoardHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteItem(r.Context(), boardKey(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	ItemID     int64   `json:"itemId"`
	Partition  string  `json:"partition"`
	OrderedIDs []int64 `json:"orderedIds"`
}

func (h *BoardHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	var req reorderRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Partition == "" || len(req.OrderedIDs) == 0 {
		http.Error(w, "partition and orderedIds are required", http.StatusBadRequest)
		return
	}
	if req.ItemID == 0 {
		req.ItemID = req.OrderedIDs[0]
	}
	res, err := h.service.Reorder(r.Context(), boardKey(r), req.ItemID, req.Partition, req.OrderedIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type moveRequest struct {
	ItemID int64  `json:"itemId"`
	To     string `json:"to"`
}

func (h *BoardHandler) Move(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.Move(r.Context(), boardKey(r), req.ItemID, req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type beginDragRequest struct {
	ItemID  int64   `json:"itemId"`
	Visible []int64 `json:"visible"`
}

func (h *BoardHandler) BeginDrag(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	var req beginDragRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := h.service.BeginDrag(r.Context(), boardKey(r), req.ItemID, req.Visible)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type hoverRequest struct {
	Boxes []board.Box `json:"boxes"`
	Y     float64     `json:"y"`
}

func (h *BoardHandler) HoverDrag(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	var req hoverRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := h.service.HoverDrag(r.Context(), boardKey(r), req.Boxes, req.Y)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *BoardHandler) DropDrag(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	var target board.Target
	if !decode(w, r, &target) {
		return
	}
	res, err := h.service.DropDrag(r.Context(), boardKey(r), target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BoardHandler) CancelDrag(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	if err := h.service.CancelDrag(r.Context(), boardKey(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkRequest struct {
	ItemIDs    []int64 `json:"itemIds"`
	To         string  `json:"to,omitempty"`
	AssigneeID int64   `json:"assigneeId,omitempty"`
}

func (h *BoardHandler) BulkMove(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	var req bulkRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.BulkMove(r.Context(), boardKey(r), req.ItemIDs, req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BoardHandler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	var req bulkRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.BulkAssign(r.Context(), boardKey(r), req.ItemIDs, req.AssigneeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BoardHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, managerOnly) {
		return
	}
	var req bulkRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.BulkDelete(r.Context(), boardKey(r), req.ItemIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BoardHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	notes, err := h.service.Notifications(r.Context(), boardKey(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *BoardHandler) GetColumns(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	views, err := h.service.Columns(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *BoardHandler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, managerOnly) {
		return
	}
	var upd services.ColumnUpdate
	if !decode(w, r, &upd) {
		return
	}
	vars := mux.Vars(r)
	view, err := h.service.UpdateColumn(r.Context(), vars["projectId"], vars["columnId"], upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *BoardHandler) ReorderColumns(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, managerOnly) {
		return
	}
	var ids []string
	if !decode(w, r, &ids) {
		return
	}
	views, err := h.service.ReorderColumns(r.Context(), mux.Vars(r)["projectId"], ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *BoardHandler) ClearColumn(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, managerOnly) {
		return
	}
	vars := mux.Vars(r)
	removed, err := h.service.ClearColumn(r.Context(), vars["projectId"], vars["columnId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int64{"removed": removed})
}

func (h *BoardHandler) GetIterations(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, anyRole) {
		return
	}
	its, err := h.service.Iterations(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, its)
}

func (h *BoardHandler) RecountIterations(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, managerOnly) {
		return
	}
	its, err := h.service.RecountIterations(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, its)
}
