package utils

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/logger"
	"github.com/catalyst-codex/codex/shared/validation"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteErrorAndStatusCode writes err as {"error", "code"} JSON. Errors that
// don't carry a status code are logged and reported as 500 without details.
func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	status := errors.StatusCode(err)
	body := errorBody{Error: err.Error(), Code: errors.Code(err)}
	if status == http.StatusInternalServerError {
		logger.Log.Error("internal error", "error", err)
		body = errorBody{Error: "Internal error"}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Error("failed to encode response", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	w.Write([]byte("\n"))
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := Decode(r, body); err != nil {
		return err
	}
	if err := validation.Validator().Struct(body); err != nil {
		logger.Log.Debug("request validation failed", "error", err)
		return errors.Validation(validation.Message(err))
	}
	return nil
}

func Decode(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("request body is not json", "error", err)
		return errors.Validation("Body is invalid json")
	}
	return nil
}

// QueryInt parses an optional integer query parameter. ok is false when the
// parameter is absent.
func QueryInt(r *http.Request, name string) (value int, ok bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, errors.Validation("invalid " + name + ": must be an integer")
	}
	return value, true, nil
}
