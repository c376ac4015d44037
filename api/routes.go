package api

import "net/http"

// setupRoutes configures all HTTP routes for the API server
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", s.handleHealth)

	// API v1 endpoints
	mux.HandleFunc("POST /api/v1/messages", s.handleSendMessage)
	mux.HandleFunc("GET /api/v1/messages", s.handleListMessages)
	mux.HandleFunc("GET /api/v1/messages/{id}", s.handleGetMessage)
	mux.HandleFunc("POST /api/v1/messages/{id}/source-tx", s.handleReportSourceTx)
	mux.HandleFunc("POST /api/v1/messages/{id}/dest-tx", s.handleReportDestTx)
	mux.HandleFunc("POST /api/v1/messages/{id}/retry", s.handleRetry)
	mux.HandleFunc("GET /api/v1/fee-quote", s.handleFeeQuote)
	mux.HandleFunc("GET /api/v1/chains", s.handleChains)
	mux.HandleFunc("GET /api/v1/subscribe", s.handleSubscribe)

	return mux
}
