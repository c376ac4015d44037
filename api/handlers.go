package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/tracker"
)

const defaultListLimit = 100

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleSendMessage handles POST /api/v1/messages
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	messageID, err := s.tracker.SendMessage(r.Context(), req.SourceChain, req.DestChain, req.MessageType, req.Payload, req.Nonce)
	if err != nil {
		s.writeTrackerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SendMessageResponse{MessageID: messageID})
}

// handleGetMessage handles GET /api/v1/messages/{id}
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.tracker.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeTrackerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(msg))
}

// handleListMessages handles GET /api/v1/messages?status=<status>&limit=<n>
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := s.lister.Scan(status, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list messages")
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageResponse(&msgs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReportSourceTx handles POST /api/v1/messages/{id}/source-tx
func (s *Server) handleReportSourceTx(w http.ResponseWriter, r *http.Request) {
	var req TxRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.tracker.ReportSourceSubmission(r.Context(), r.PathValue("id"), req.TxRef); err != nil {
		s.writeTrackerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReportDestTx handles POST /api/v1/messages/{id}/dest-tx
func (s *Server) handleReportDestTx(w http.ResponseWriter, r *http.Request) {
	var req TxRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.tracker.ReportDestinationObservation(r.Context(), r.PathValue("id"), req.TxRef); err != nil {
		s.writeTrackerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRetry handles POST /api/v1/messages/{id}/retry
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.RetryVerification(r.Context(), r.PathValue("id")); err != nil {
		s.writeTrackerError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleFeeQuote handles GET /api/v1/fee-quote?source=<chain>&dest=<chain>&payload_size=<n>&gas_limit=<n>
func (s *Server) handleFeeQuote(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	dest := r.URL.Query().Get("dest")
	if source == "" || dest == "" {
		writeError(w, http.StatusBadRequest, "source and dest parameters are required")
		return
	}

	srcDesc := s.directory.Descriptor(source)
	dstDesc := s.directory.Descriptor(dest)
	if srcDesc == nil || dstDesc == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown chain pair %s -> %s", source, dest))
		return
	}

	payloadSize, err := strconv.Atoi(r.URL.Query().Get("payload_size"))
	if err != nil || payloadSize < 0 {
		writeError(w, http.StatusBadRequest, "payload_size must be a non-negative integer")
		return
	}

	var gasLimit uint64
	if raw := r.URL.Query().Get("gas_limit"); raw != "" {
		gasLimit, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "gas_limit must be a non-negative integer")
			return
		}
	}

	quote, err := s.quoter.Estimate(srcDesc, dstDesc, payloadSize, gasLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// handleChains handles GET /api/v1/chains
func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.directory.All())
}

// writeTrackerError maps tracker errors onto HTTP status codes.
func (s *Server) writeTrackerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracker.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tracker.ErrInvalidPayload), errors.Is(err, tracker.ErrUnknownChain):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tracker.ErrConflictingSubmission),
		errors.Is(err, tracker.ErrNotRetryable),
		errors.Is(err, tracker.ErrStaleTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
