package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/nadab-hotels/orders-api/internal/service"
)

var errInvalidBody = errors.New("invalid request body")

// envelope is the body shape shared by every endpoint.
type envelope struct {
	Success  bool                `json:"success"`
	Order    any                 `json:"order,omitempty"`
	Orders   any                 `json:"orders,omitempty"`
	Stats    any                 `json:"stats,omitempty"`
	Rejected []rejectionResponse `json:"rejected,omitempty"`
	Message  string              `json:"message,omitempty"`
}

type rejectionResponse struct {
	Kind   string `json:"kind"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// writeServiceError maps service errors to status codes. Unknown errors are
// logged and reported generically.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case isNotFoundError(err):
		writeFailure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrOrderConflict):
		writeFailure(w, http.StatusConflict, err.Error())
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeFailure(w, http.StatusInternalServerError, "internal server error")
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, errInvalidBody) ||
		errors.Is(err, service.ErrEmptyBody) ||
		errors.Is(err, service.ErrHotelRequired) ||
		errors.Is(err, service.ErrInvalidStatus) ||
		errors.Is(err, service.ErrInvalidItem) ||
		errors.Is(err, service.ErrInvalidPayment) ||
		errors.Is(err, service.ErrEmptyPatch)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, service.ErrOrderNotFound) ||
		errors.Is(err, service.ErrItemNotFound)
}
