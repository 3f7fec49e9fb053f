package api

import (
	"net/http"

	"github.com/openbuilders/payment-gateway/internal/types"
)

func (s *Server) CreateBulkHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req types.CreateBulkRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return s.bulks.Create(r.Context(), &req)
}

func (s *Server) VerifyBulkHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req types.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	if err := s.bulks.Verify(r.Context(), &req); err != nil {
		return nil, err
	}

	return map[string]bool{"success": true}, nil
}

func (s *Server) SetRecipientStatusHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req types.SetRecipientStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return s.bulks.SetRecipientStatus(r.Context(), &req)
}
