package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) logEvent(ctx context.Context, event string, fields map[string]any) {
	payload := map[string]any{
		"event": event,
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		payload["request_id"] = reqID
	}
	for k, v := range fields {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Printf("log_marshal_error: %v", err)
		return
	}
	s.logger.Printf(string(data))
}
