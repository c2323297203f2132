package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher mirrors bargain events onto a NATS subject per event name
// so downstream consumers (dashboards, archival workers) can subscribe
// without touching the ledger.
type NATSPublisher struct {
	Conn   *nats.Conn
	Logger *zap.Logger
}

func NewNATSPublisher(url string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{Conn: conn, Logger: logger}, nil
}

func (p *NATSPublisher) Record(_ context.Context, sessionID, name string, payload map[string]any) {
	msg := map[string]any{
		"sessionId": sessionID,
		"event":     name,
		"payload":   payload,
		"emittedAt": time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		p.Logger.Warn("failed to encode bargain event for NATS", zap.Error(err))
		return
	}
	if err := p.Conn.Publish("bargain.events."+name, data); err != nil {
		p.Logger.Warn("failed to publish bargain event",
			zap.String("event", name), zap.Error(err))
	}
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.Conn != nil {
		p.Conn.Close()
	}
}
