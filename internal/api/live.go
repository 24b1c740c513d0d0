package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/middleware"
	"github.com/clinical-scoring-engine/internal/service"
)

const (
	liveWriteWait      = 10 * time.Second
	livePongWait       = 60 * time.Second
	livePingPeriod     = (livePongWait * 9) / 10
	liveMaxMessageSize = 64 << 10
)

// liveRequest is one client frame: the current state of a calculator form.
type liveRequest struct {
	ID           string        `json:"id,omitempty"`
	CalculatorID string        `json:"calculator_id"`
	Inputs       domain.Inputs `json:"inputs"`
}

// liveResponse answers a liveRequest with either a result or an error.
type liveResponse struct {
	ID           string           `json:"id,omitempty"`
	CalculatorID string           `json:"calculator_id,omitempty"`
	Result       *domain.Result   `json:"result,omitempty"`
	Error        *domain.APIError `json:"error,omitempty"`
}

// handleLive upgrades to a WebSocket and recomputes on every form frame.
// Live results are never persisted.
func (s *Server) handleLive(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	requestID := c.GetString(middleware.RequestIDKey)
	log := s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"client_ip":  c.ClientIP(),
	})
	log.Debug("Live session opened")

	conn.SetReadLimit(liveMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	frames := make(chan liveResponse)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(livePingPeriod)
		defer ticker.Stop()
		for {
			select {
			case resp, ok := <-frames:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(liveWriteWait))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
				if err := conn.WriteJSON(resp); err != nil {
					log.WithError(err).Debug("Live write failed")
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("Live session closed unexpectedly")
			}
			break
		}

		resp := s.liveCompute(c, data)
		select {
		case frames <- resp:
		case <-done:
			return
		}
	}

	close(frames)
	<-done
	log.Debug("Live session closed")
}

func (s *Server) liveCompute(c *gin.Context, data []byte) liveResponse {
	var req liveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return liveResponse{Error: domain.NewAPIError(
			domain.ErrInvalidInput, "Malformed frame", err.Error(), c.GetString(middleware.RequestIDKey))}
	}
	if req.CalculatorID == "" {
		return liveResponse{ID: req.ID, Error: domain.NewAPIError(
			domain.ErrValidation, "calculator_id is required", "", c.GetString(middleware.RequestIDKey))}
	}

	out, err := s.scoring.Compute(c.Request.Context(), service.ComputeRequest{
		CalculatorID: req.CalculatorID,
		Inputs:       req.Inputs,
	})
	if err != nil {
		_, apiErr := toAPIError(c, err)
		return liveResponse{ID: req.ID, CalculatorID: req.CalculatorID, Error: apiErr}
	}
	return liveResponse{ID: req.ID, CalculatorID: req.CalculatorID, Result: &out.Result}
}
