package http

import (
	"context"
	"net/http"

	"stockroom/internal/auth"
	"stockroom/internal/core"
	applog "stockroom/internal/log"
	"stockroom/internal/ports"
	"stockroom/internal/services"
)

type movementRequest struct {
	ProductID   int64  `json:"productId"`
	SupplierID  int64  `json:"supplierId"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
	Note        string `json:"note"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type movementFunc func(ctx context.Context, req services.MovementRequest) (core.Transaction, error)

// handleMovement decodes a movement, records it for the session user and
// echoes the stored transaction.
func (s *Server) handleMovement(w http.ResponseWriter, r *http.Request, record movementFunc) {
	var req movementRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpMovement, err)
		return
	}
	sess, _ := auth.FromContext(r.Context())
	tx, err := record(r.Context(), services.MovementRequest{
		ProductID:   req.ProductID,
		SupplierID:  req.SupplierID,
		Quantity:    req.Quantity,
		Description: sanitizeInput(req.Description),
		Note:        sanitizeInput(req.Note),
		UserID:      sess.UserID,
	})
	if err != nil {
		writeError(w, r, applog.OpMovement, err)
		return
	}
	NewResponse().Message("transaction made successfully").With("transaction", toTransactionView(tx)).Write(w)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	s.handleMovement(w, r, s.inventory.Restock)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleMovement(w, r, s.inventory.Sell)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	s.handleMovement(w, r, s.inventory.ReturnToSupplier)
}

// handleListTransactions serves one zero-based page of the history.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := QueryInt(q, "page", 0)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	size, err := QueryInt(q, "size", ports.DefaultPageSize)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	result, err := s.inventory.List(r.Context(), ports.TransactionQuery{
		Page:   page,
		Size:   size,
		Filter: sanitizeInput(q.Get("filter")),
	})
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewResponse().
		Page(result.TotalElements, result.TotalPages).
		With("transactions", mapViews(result.Items, toTransactionView)).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	tx, err := s.inventory.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().With("transaction", toTransactionView(tx)).Write(w)
}

func (s *Server) handleTransactionsByMonth(w http.ResponseWriter, r *http.Request) {
	p, err := RequireMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs, err := s.inventory.ListByMonth(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewResponse().With("transactions", mapViews(txs, toTransactionView)).Write(w)
}

func (s *Server) handleUpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req statusRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	tx, err := s.inventory.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().Message("transaction updated successfully").With("transaction", toTransactionView(tx)).Write(w)
}
