package api

import (
	"net/http"
	"sort"

	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"
)

func (s *Server) CreateTransferHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req types.CreateTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return s.transfers.Create(r.Context(), &req)
}

func (s *Server) VerifyTransferHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req types.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	if err := s.transfers.Verify(r.Context(), &req); err != nil {
		return nil, err
	}

	return map[string]bool{"success": true}, nil
}

func (s *Server) SetTransferStatusHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req types.SetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return s.transfers.SetStatus(r.Context(), &req)
}

// ListTransfersHandler returns every relationship the address participates
// in, single transfers and flattened bulk entries alike, newest first.
func (s *Server) ListTransfersHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	address := r.URL.Query().Get("address")
	if address == "" {
		return nil, errors.New(errors.CodeValidationError,
			"missing \"address\" query parameter")
	}

	singles, err := s.transfers.ListByAddress(r.Context(), address)
	if err != nil {
		return nil, err
	}

	bulkViews, err := s.bulks.ListByAddress(r.Context(), address)
	if err != nil {
		return nil, err
	}

	views := append(singles, bulkViews...)
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})

	return views, nil
}
