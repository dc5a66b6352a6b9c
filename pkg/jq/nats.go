package jq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type JobQueue struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func New(url string, logger *zap.Logger) (*JobQueue, error) {
	jq := &JobQueue{
		conn:   nil,
		logger: logger.Named("jq"),
	}

	conn, err := nats.Connect(
		url,
		nats.Name("kaytu-assessor"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(jq.reconnectHandler),
		nats.DisconnectErrHandler(jq.disconnectHandler),
		nats.ClosedHandler(jq.closeHandler),
	)
	if err != nil {
		return nil, err
	}

	jq.conn = conn

	return jq, nil
}

// NewWithConn wraps an established connection.
func NewWithConn(conn *nats.Conn, logger *zap.Logger) *JobQueue {
	return &JobQueue{conn: conn, logger: logger.Named("jq")}
}

func (jq *JobQueue) reconnectHandler(nc *nats.Conn) {
	jq.logger.Info("got reconnected", zap.String("url", nc.ConnectedUrl()))
}

func (jq *JobQueue) disconnectHandler(_ *nats.Conn, err error) {
	jq.logger.Error("got disconnected", zap.Error(err))
}

func (jq *JobQueue) closeHandler(nc *nats.Conn) {
	jq.logger.Warn("connection closed", zap.Error(nc.LastError()))
}

// PublishJSON encodes v as JSON and publishes it on the subject.
func (jq *JobQueue) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := jq.conn.Publish(subject, b); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (jq *JobQueue) Close() {
	if err := jq.conn.Drain(); err != nil {
		jq.logger.Error("failed to drain connection", zap.Error(err))
	}
}
