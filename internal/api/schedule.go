package api

import (
	"net/http"
	"time"

	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"
)

type createIntentRequest struct {
	Kind        types.IntentKind             `json:"kind"`
	Single      *types.CreateTransferRequest `json:"single,omitempty"`
	Bulk        *types.CreateBulkRequest     `json:"bulk,omitempty"`
	ScheduledAt time.Time                    `json:"scheduled_at"`
}

func (s *Server) CreateIntentHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	intent := &types.ScheduledIntent{
		Kind:        req.Kind,
		Single:      req.Single,
		Bulk:        req.Bulk,
		ScheduledAt: req.ScheduledAt,
	}

	if err := s.scheduler.Create(r.Context(), intent); err != nil {
		return nil, err
	}

	return intent, nil
}

func (s *Server) ListIntentsHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	address := r.URL.Query().Get("address")
	if address == "" {
		return nil, errors.New(errors.CodeValidationError,
			"missing \"address\" query parameter")
	}

	return s.scheduler.ListByAddress(r.Context(), address)
}

func (s *Server) CancelIntentHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	id, err := queryUUID(r, "id")
	if err != nil {
		return nil, err
	}

	if err := s.scheduler.Cancel(r.Context(), id); err != nil {
		return nil, err
	}

	return "ok", nil
}
