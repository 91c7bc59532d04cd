package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/stockadvisor/internal/llm"
	"github.com/ajitpratap0/stockadvisor/internal/market"
	"github.com/ajitpratap0/stockadvisor/internal/tools"
)

var startTime = time.Now()

// Root handler
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "StockAdvisor API",
		"version": s.version,
		"status":  "running",
		"time":    time.Now().UTC(),
	})
}

// handleGetHealth reports service health. The model being down degrades the
// service but does not make it unhealthy: deterministic endpoints still work.
func (s *Server) handleGetHealth(c *gin.Context) {
	modelStatus := "healthy"
	if s.model != nil {
		if err := s.model.HealthCheck(c.Request.Context()); err != nil {
			modelStatus = "unavailable"
			log.Warn().Err(err).Msg("Model health check failed")
		}
	} else {
		modelStatus = "not_configured"
	}

	status := "healthy"
	if modelStatus != "healthy" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(startTime).Seconds(),
		"version":   s.version,
		"components": gin.H{
			"model": gin.H{"status": modelStatus},
		},
	})
}

// handleListTools returns the tool manifest.
func (s *Server) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tools": s.registry.Tools(),
	})
}

type chatRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// handleChat runs one conversation turn.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and message are required"})
		return
	}

	resp, err := s.chat.ProcessMessage(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    req.UserID,
		"reply":      resp.Reply,
		"tools_used": resp.ToolsUsed,
		"degraded":   resp.Degraded,
	})
}

type analyzeRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Range  string `json:"range"`
}

// handleAnalyze runs the deterministic analysis pipeline for one symbol.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	rng := req.Range
	if rng == "" {
		rng = market.DefaultRange
	}
	if !market.ValidRange(rng) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
		return
	}

	result, err := s.service.AnalyzeStock(c.Request.Context(), normalizeSymbol(req.Symbol), rng)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type compareRequest struct {
	Symbols []string `json:"symbols" binding:"required"`
	Range   string   `json:"range"`
}

// handleCompare analyzes and ranks several symbols.
func (s *Server) handleCompare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}
	rng := req.Range
	if rng == "" {
		rng = market.DefaultRange
	}

	symbols := make([]string, 0, len(req.Symbols))
	for _, sym := range req.Symbols {
		if normalized := normalizeSymbol(sym); normalized != "" {
			symbols = append(symbols, normalized)
		}
	}

	result, err := s.service.CompareStocks(c.Request.Context(), symbols, rng)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleGetQuote returns the current quote for one symbol.
func (s *Server) handleGetQuote(c *gin.Context) {
	point, err := s.service.Quote(c.Request.Context(), normalizeSymbol(c.Param("symbol")))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, point)
}

// handleGetNews returns market news, or per-symbol news with sentiment when
// ?symbol= is given.
func (s *Server) handleGetNews(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	if symbol := normalizeSymbol(c.Query("symbol")); symbol != "" {
		articles, sent, err := s.service.StockNews(c.Request.Context(), symbol, limit)
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"symbol":    symbol,
			"articles":  articles,
			"sentiment": sent,
		})
		return
	}

	articles, err := s.service.MarketNews(c.Request.Context(), limit)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// handleGetContext returns a snapshot of a user's conversation context.
func (s *Server) handleGetContext(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Get(c.Param("user_id")))
}

type preferenceRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// handleSetPreference stores a user preference that subsequent turns carry
// into the model's system prompt.
func (s *Server) handleSetPreference(c *gin.Context) {
	var req preferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key and value are required"})
		return
	}

	userID := c.Param("user_id")
	s.store.SetPreference(userID, req.Key, req.Value)
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "preferences": s.store.Get(userID).Preferences})
}

// handleClearContext deletes a user's conversation context.
func (s *Server) handleClearContext(c *gin.Context) {
	userID := c.Param("user_id")
	if !s.store.Clear(userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no context for user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "cleared": true})
}

// renderError maps domain errors onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	var (
		notFound      *market.NotFoundError
		rateLimited   *market.RateLimitedError
		unavailable   *market.SourceUnavailableError
		modelDown     *llm.ModelUnavailableError
		invalidParams *tools.InvalidParamsError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invalidParams):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &rateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.As(err, &modelDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model endpoint unavailable"})
	default:
		// Unclassified failures keep their detail in the logs only.
		log.Error().Err(err).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func normalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
