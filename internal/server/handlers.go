package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nion/internal/report"
	"nion/internal/state"
)

// processRequest is the body accepted by every /process endpoint.
type processRequest struct {
	Message   string `json:"message" binding:"required"`
	Sender    string `json:"sender" binding:"required"`
	ProjectID string `json:"project_id" binding:"required"`
	MessageID string `json:"message_id"`
}

func (r processRequest) toInput() state.InputMessage {
	return state.InputMessage{
		Message:   r.Message,
		Sender:    r.Sender,
		ProjectID: r.ProjectID,
		MessageID: r.MessageID,
		Timestamp: time.Now().UTC(),
	}
}

// processResponse is the summary body returned by POST /process.
type processResponse struct {
	StateID               string  `json:"state_id"`
	Status                string  `json:"status"`
	Message               string  `json:"message"`
	ExecutionTimeMS       float64 `json:"execution_time_ms"`
	ExecutionResultsCount int     `json:"execution_results_count"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Nion Orchestration Engine",
		"version": "1.0.0",
		"endpoints": gin.H{
			"GET /health":        "Health check",
			"POST /process":      "Process a message, summary response",
			"POST /process/map":  "Process a message, plain-text orchestration map",
			"POST /process/json": "Process a message, detailed JSON output",
			"GET /metrics":       "Prometheus metrics",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "Nion Orchestration Engine",
	})
}

func (s *Server) handleProcess(c *gin.Context) {
	var req processRequest
	if !s.bind(c, &req) {
		return
	}

	start := time.Now()
	run, err := s.engine.Run(c.Request.Context(), req.toInput())
	if err != nil {
		s.abort(c, err)
		return
	}
	elapsed := float64(time.Since(start).Milliseconds())

	s.logger.Info("message from %s processed: %s", req.Sender, run.RunID)
	c.JSON(http.StatusOK, processResponse{
		StateID:               run.RunID,
		Status:                "COMPLETED",
		Message:               "Orchestration completed successfully",
		ExecutionTimeMS:       elapsed,
		ExecutionResultsCount: len(run.Results),
	})
}

// handleProcessMap runs the fixed-order pipeline so the map always shows every
// stage, and returns the plain-text orchestration map.
func (s *Server) handleProcessMap(c *gin.Context) {
	var req processRequest
	if !s.bind(c, &req) {
		return
	}

	start := time.Now()
	run, err := s.engine.RunFixedOrder(c.Request.Context(), req.toInput())
	if err != nil {
		s.abort(c, err)
		return
	}
	elapsed := float64(time.Since(start).Milliseconds())

	c.Header("X-State-ID", run.RunID)
	c.Header("X-Execution-Time-Ms", fmt.Sprintf("%.0f", elapsed))
	c.Header("X-Tasks-Executed", fmt.Sprintf("%d", len(run.Results)))
	c.String(http.StatusOK, report.Map(run))
}

func (s *Server) handleProcessJSON(c *gin.Context) {
	var req processRequest
	if !s.bind(c, &req) {
		return
	}

	start := time.Now()
	run, err := s.engine.Run(c.Request.Context(), req.toInput())
	if err != nil {
		s.abort(c, err)
		return
	}
	elapsed := float64(time.Since(start).Milliseconds())

	doc := report.JSON(run)
	doc["execution_time_ms"] = elapsed

	c.Header("X-State-ID", run.RunID)
	c.Header("X-Execution-Time-Ms", fmt.Sprintf("%.0f", elapsed))
	c.JSON(http.StatusOK, doc)
}

func (s *Server) bind(c *gin.Context, req *processRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return false
	}
	return true
}

// abort maps a whole-run failure to a server error response.
func (s *Server) abort(c *gin.Context, err error) {
	s.logger.Error("orchestration failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"detail": fmt.Sprintf("Error processing message: %v", err),
	})
}
