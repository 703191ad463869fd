package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/shubhamrasal/peekq/internal/config"
	"github.com/shubhamrasal/peekq/internal/models"
)

const pingTimeout = 2 * time.Second

var errNotConnected = errors.New("not connected to NATS")

// jetStream is the part of nats.JetStreamContext the browser reads through
type jetStream interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	StreamsInfo(opts ...nats.JSOpt) <-chan *nats.StreamInfo
	ConsumerInfo(stream, name string, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
	ConsumersInfo(stream string, opts ...nats.JSOpt) <-chan *nats.ConsumerInfo
	GetMsg(name string, seq uint64, opts ...nats.JSOpt) (*nats.RawStreamMsg, error)
}

// Client wraps NATS connection and JetStream context
type Client struct {
	conn             *nats.Conn
	js               jetStream
	deadLetterSuffix string
	logger           zerolog.Logger

	// getNext finds the next message on a subject; streams that allow direct get use it
	getNext func(ctx context.Context, stream string, seq uint64, subject string) (*nats.RawStreamMsg, error)
}

// NewClient creates a new NATS client with JetStream enabled
func NewClient(ctx *config.Context, deadLetterSuffix string, logger zerolog.Logger) (*Client, error) {
	logger = logger.With().Str("server", ctx.Server).Logger()

	// Build connection options
	opts := []nats.Option{
		nats.Name("peekq"),
		nats.Timeout(10 * time.Second),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("reconnected to NATS")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug().Msg("NATS connection closed")
		}),
	}

	// Add token authentication if provided
	if ctx.Token != "" {
		opts = append(opts, nats.Token(ctx.Token))
	}

	// Add user/password authentication if provided
	if ctx.User != "" {
		opts = append(opts, nats.UserInfo(ctx.User, ctx.Password))
	}

	// Add credentials file if provided
	if ctx.Creds != "" {
		opts = append(opts, nats.UserCredentials(ctx.Creds))
	}

	// Connect with options
	nc, err := nats.Connect(ctx.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// Create JetStream context
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	logger.Info().Str("context", ctx.Name).Msg("connected to NATS")

	client := newClient(js, deadLetterSuffix, logger)
	client.conn = nc
	return client, nil
}

func newClient(js jetStream, deadLetterSuffix string, logger zerolog.Logger) *Client {
	if deadLetterSuffix == "" {
		deadLetterSuffix = models.DefaultDeadLetterSuffix
	}
	c := &Client{
		js:               js,
		deadLetterSuffix: deadLetterSuffix,
		logger:           logger,
	}
	c.getNext = c.directGetNext
	return c
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// IsConnected returns true if the client is connected to NATS
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// ServerInfo returns the URL of the server the connection is using
func (c *Client) ServerInfo() (string, error) {
	if c.conn == nil {
		return "", errNotConnected
	}
	if url := c.conn.ConnectedUrl(); url != "" {
		return url, nil
	}
	return "", errNotConnected
}

// Ping round-trips to the server. Without a deadline on ctx it waits at most pingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	if c.conn == nil {
		return errNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pingTimeout)
		defer cancel()
	}
	if err := c.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// DeadLetterStream returns the name of the stream holding the target's dead-lettered messages
func (c *Client) DeadLetterStream(target models.Target) string {
	return models.DeadLetterName(target, c.deadLetterSuffix)
}

// IsDeadLetterStream reports whether a stream name follows the dead-letter naming convention
func (c *Client) IsDeadLetterStream(name string) bool {
	return len(name) > len(c.deadLetterSuffix) && strings.HasSuffix(name, c.deadLetterSuffix)
}
