package events

import (
	"context"
	"fmt"
	"time"

	"portfolio-dashboard/internal/config"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// StreamName is the JetStream stream notification events are stored in
const StreamName = "DASHBOARD_NOTIFICATIONS"

// Client represents a NATS JetStream client
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	cfg    config.NATSConfig
	logger zerolog.Logger
}

// NewClient connects to NATS and makes sure the notification stream exists
func NewClient(cfg config.NATSConfig, logger zerolog.Logger) (*Client, error) {
	log := logger.With().Str("component", "nats").Logger()

	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{conn: conn, js: js, cfg: cfg, logger: log}

	if err := client.ensureStream(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize stream: %w", err)
	}

	log.Info().Str("subject", cfg.Subject).Msg("NATS JetStream client initialized")
	return client, nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Publish publishes a message to a subject
func (c *Client) Publish(ctx context.Context, subject string, data []byte, msgID string) error {
	opts := []nats.PubOpt{nats.Context(ctx)}
	if msgID != "" {
		opts = append(opts, nats.MsgId(msgID))
	}
	if _, err := c.js.Publish(subject, data, opts...); err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", subject, err)
	}
	return nil
}

// Connected reports whether the underlying connection is up
func (c *Client) Connected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// HealthCheck checks the health of the NATS connection
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("NATS connection is nil")
	}
	if !c.conn.IsConnected() {
		return fmt.Errorf("NATS connection is not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.js.AccountInfo(nats.Context(ctx)); err != nil {
		return fmt.Errorf("NATS JetStream health check failed: %w", err)
	}
	return nil
}

// ensureStream creates or updates the notification stream
func (c *Client) ensureStream() error {
	streamConfig := &nats.StreamConfig{
		Name:        StreamName,
		Description: "Dashboard notification events",
		Subjects:    []string{c.cfg.Subject + ".>"},
		MaxAge:      7 * 24 * time.Hour,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Duplicates:  10 * time.Minute,
	}

	if _, err := c.js.StreamInfo(StreamName); err != nil {
		if _, err := c.js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
		}
		c.logger.Info().Str("stream", StreamName).Msg("created NATS stream")
		return nil
	}

	if _, err := c.js.UpdateStream(streamConfig); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", StreamName, err)
	}
	return nil
}
