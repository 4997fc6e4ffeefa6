package http

import (
	"net/http"

	applog "stockroom/internal/log"
	"stockroom/internal/ports"
)

type recordRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// handleListRecords serves one one-based page of records.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := QueryInt(q, "page", 1)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	limit, err := QueryInt(q, "limit", ports.DefaultPageSize)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	query := ports.RecordQuery{Page: page, Limit: limit, Search: sanitizeInput(q.Get("search"))}.Normalize()

	result, err := s.records.List(r.Context(), query)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewResponse().
		Page(result.TotalElements, result.TotalPages).
		With("page", query.Page).
		With("limit", query.Limit).
		With("records", mapViews(result.Items, toRecordView)).
		Write(w)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	rec, err := s.records.Create(r.Context(), sanitizeInput(req.Name), req.Quantity)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Message("record created successfully").With("record", toRecordView(rec)).Write(w)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	rec, err := s.records.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().With("record", toRecordView(rec)).Write(w)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req recordRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	rec, err := s.records.Update(r.Context(), id, sanitizeInput(req.Name), req.Quantity)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().Message("record updated successfully").With("record", toRecordView(rec)).Write(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.records.Delete(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewResponse().Message("record deleted successfully").Write(w)
}
