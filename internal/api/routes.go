package api

import "a2a-chat-agent/internal/a2a"

func (s *Server) setupRoutes() {
	// Documentation
	s.app.Get("/docs", handleDocsHTML)
	s.app.Get("/docs/json", handleDocsJSON)

	// Health check
	s.app.Get("/health", s.healthHandler)

	// Public agent card
	s.app.Get(a2a.AgentCardPath, s.agentCardHandler)

	if s.opts.Metrics != nil {
		s.app.Get("/metrics", s.metricsHandler())
	}

	// JSON-RPC routes
	s.app.Post("/", s.authenticate, s.rpcHandler)
	s.app.Post(a2a.StreamPath, s.authenticate, s.streamHandler)

	if s.opts.Calls != nil {
		s.app.Get("/calls", s.authenticate, s.callsHandler)
	}
}
