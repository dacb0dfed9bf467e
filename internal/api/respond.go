package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"liquidationRouter/internal/amm"
)

const requestLimit = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

// writeEngineError maps an engine error onto an HTTP status. Internal
// failures never leak their message.
func writeEngineError(w http.ResponseWriter, err error) {
	kind := amm.Kind(err)
	status := statusForKind(kind)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSONError(w, status, kind, message)
}

func statusForKind(kind string) int {
	switch kind {
	case "InvalidParameter", "InvalidAmount":
		return http.StatusBadRequest
	case "Unauthorized", "UnknownProtocol":
		return http.StatusForbidden
	case "AlreadyInitialized", "NotInitialized", "NonceReplay":
		return http.StatusConflict
	case "SwapsPaused":
		return http.StatusServiceUnavailable
	case "ProtocolUnavailable", "NoProtocolAvailable":
		return http.StatusNotFound
	case "DeadlineExpired", "AmountOutOfBounds", "UnsupportedPair", "SlippageTooHigh",
		"InsufficientOutput", "BelowLiquidationThreshold":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeRequest(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, requestLimit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, "BadRequest", err.Error())
}
