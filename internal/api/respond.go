package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gatherly/internal/auth"
	"gatherly/internal/router"
	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

var (
	errForbidden  = errors.New("only the organizer may change this event")
	errBadRequest = errors.New("bad request")
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes a REST response
func writeJSON(w http.ResponseWriter, code int, resp interface{}) error {
	body, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return err
	}
	w.WriteHeader(code)
	_, err = w.Write(body)
	return err
}

// statusFor maps domain errors to HTTP status codes and the message shown
// to the client. Unknown errors become a bare 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, errBadRequest),
		errors.Is(err, router.ErrEmptyContent),
		errors.Is(err, router.ErrContentTooLong),
		errors.Is(err, router.ErrInvalidRecipient):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, interfaces.ErrEmailTaken):
		return http.StatusBadRequest, interfaces.ErrEmailTaken.Error()
	case errors.Is(err, interfaces.ErrUsernameTaken):
		return http.StatusBadRequest, interfaces.ErrUsernameTaken.Error()
	case errors.Is(err, interfaces.ErrEventTitleTaken):
		return http.StatusBadRequest, interfaces.ErrEventTitleTaken.Error()
	case errors.Is(err, auth.ErrInvalidLogin),
		errors.Is(err, interfaces.ErrInvalidCredential):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, interfaces.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, interfaces.ErrEventNotFound):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, interfaces.ErrMessageNotFound):
		return http.StatusNotFound, "message not found"
	case errors.Is(err, router.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

func errorBody(code int, message string) ErrorResponse {
	return ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	}
}

// decodeBody parses a JSON request body into v and validates it
func decodeBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return types.Validate(v)
}

// pathID parses the named mux variable as a positive integer
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// pageFromQuery reads skip and limit, defaulting to 0 and 100
func pageFromQuery(r *http.Request) (types.Page, error) {
	page := types.DefaultPage()
	query := r.URL.Query()

	for name, dst := range map[string]*int{"skip": &page.Skip, "limit": &page.Limit} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return page, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
		}
		*dst = value
	}

	if err := types.Validate(page); err != nil {
		return page, err
	}
	return page, nil
}
