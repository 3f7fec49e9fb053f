package api

import (
	"net/http"

	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *Server) CreatePayrollHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req types.CreatePayrollRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return s.payrolls.Create(r.Context(), &req)
}

func (s *Server) ListPayrollsHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		return nil, errors.New(errors.CodeValidationError,
			"missing \"owner\" query parameter")
	}

	return s.payrolls.ListByOwner(r.Context(), owner)
}

func (s *Server) DeletePayrollHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	id, err := queryUUID(r, "id")
	if err != nil {
		return nil, err
	}

	if err := s.payrolls.Delete(r.Context(), id); err != nil {
		return nil, err
	}

	return "ok", nil
}

type payrollRecipientRequest struct {
	TemplateID uuid.UUID       `json:"template_id"`
	Address    string          `json:"address"`
	Amount     decimal.Decimal `json:"amount"`
}

type payrollTotalResponse struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (s *Server) AddPayrollRecipientHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req payrollRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	total, err := s.payrolls.AddRecipient(r.Context(), req.TemplateID,
		types.PayrollRecipient{Address: req.Address, Amount: req.Amount})
	if err != nil {
		return nil, err
	}

	return payrollTotalResponse{TotalAmount: total}, nil
}

func (s *Server) UpdatePayrollRecipientHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req payrollRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	total, err := s.payrolls.UpdateRecipientAmount(r.Context(), req.TemplateID,
		req.Address, req.Amount)
	if err != nil {
		return nil, err
	}

	return payrollTotalResponse{TotalAmount: total}, nil
}

func (s *Server) RemovePayrollRecipientHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	id, err := queryUUID(r, "id")
	if err != nil {
		return nil, err
	}

	address := r.URL.Query().Get("address")

	total, err := s.payrolls.RemoveRecipient(r.Context(), id, address)
	if err != nil {
		return nil, err
	}

	return payrollTotalResponse{TotalAmount: total}, nil
}

type executePayrollRequest struct {
	TemplateID uuid.UUID  `json:"template_id"`
	Mode       types.Mode `json:"mode"`
}

func (s *Server) ExecutePayrollHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	var req executePayrollRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	return s.payrolls.Execute(r.Context(), req.TemplateID, req.Mode)
}
