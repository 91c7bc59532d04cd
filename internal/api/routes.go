package api

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// API v1 group
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.handleGetHealth)
		v1.GET("/tools", s.handleListTools)

		// Conversational entry point
		v1.POST("/chat", s.handleChat)

		// Deterministic analysis endpoints: no model in the path
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/compare", s.handleCompare)
		v1.GET("/quote/:symbol", s.handleGetQuote)
		v1.GET("/news", s.handleGetNews)

		// Conversation context management
		v1.GET("/context/:user_id", s.handleGetContext)
		v1.DELETE("/context/:user_id", s.handleClearContext)
		v1.PUT("/context/:user_id/preferences", s.handleSetPreference)
	}

	// Root endpoint
	s.router.GET("/", s.handleRoot)
}
