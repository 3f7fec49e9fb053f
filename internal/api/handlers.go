package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/openbuilders/payment-gateway/internal/errors"

	"github.com/google/uuid"
)

func decodeJSON(r *http.Request, dst interface{}) error {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.Wrap(errors.CodeValidationError, err,
			"couldn't read request body")
	}
	defer r.Body.Close()

	if err := json.Unmarshal(bodyBytes, dst); err != nil {
		return errors.Wrap(errors.CodeValidationError, err,
			"request unmarshalling error")
	}

	return nil
}

func queryUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, errors.New(errors.CodeValidationError,
			"missing %q query parameter", name)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Wrap(errors.CodeValidationError, err,
			"invalid %q query parameter", name)
	}

	return id, nil
}
