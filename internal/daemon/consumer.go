package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"reprint/internal/config"
	"reprint/internal/logging"
	"reprint/internal/pipeline"
	"reprint/internal/services"
)

// Listener consumes chunk tasks until the context is canceled.
type Listener interface {
	Listen(ctx context.Context) error
	Close()
}

// Consumer is a JetStream listener with durable subscriptions on the
// register and verify subjects.
type Consumer struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	cfg    *config.Config
	pipe   *pipeline.Pipeline
	logger *slog.Logger
	subs   []*nats.Subscription
}

// NewConsumer connects to the broker and prepares the JetStream context.
func NewConsumer(cfg *config.Config, pipe *pipeline.Pipeline, logger *slog.Logger) (*Consumer, error) {
	nc, err := nats.Connect(
		cfg.Broker.URL,
		nats.Name("reprint-worker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	return &Consumer{
		nc:     nc,
		js:     js,
		cfg:    cfg,
		pipe:   pipe,
		logger: logging.NewComponentLogger(logger, "consumer"),
	}, nil
}

// Listen subscribes both chunk subjects with durable consumers and blocks
// until the context ends. Delivery is acknowledged manually: permanent
// failures are dropped, everything else is redelivered.
func (c *Consumer) Listen(ctx context.Context) error {
	registerSub, err := c.js.Subscribe(c.cfg.Broker.RegisterSubject, func(m *nats.Msg) {
		c.handle(ctx, m, c.decodeRegister)
	}, nats.Durable(c.cfg.Broker.Durable+"-register"), nats.ManualAck())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.cfg.Broker.RegisterSubject, err)
	}
	c.subs = append(c.subs, registerSub)

	verifySub, err := c.js.Subscribe(c.cfg.Broker.VerifySubject, func(m *nats.Msg) {
		c.handle(ctx, m, c.decodeVerify)
	}, nats.Durable(c.cfg.Broker.Durable+"-verify"), nats.ManualAck())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.cfg.Broker.VerifySubject, err)
	}
	c.subs = append(c.subs, verifySub)

	c.logger.Info("consuming chunk tasks",
		logging.String("register_subject", c.cfg.Broker.RegisterSubject),
		logging.String("verify_subject", c.cfg.Broker.VerifySubject),
	)

	<-ctx.Done()
	return ctx.Err()
}

type taskFunc func(ctx context.Context) error

func (c *Consumer) decodeRegister(data []byte) (taskFunc, error) {
	var task pipeline.RegisterTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return c.pipe.ProcessRegisterChunk(ctx, task)
	}, nil
}

func (c *Consumer) decodeVerify(data []byte) (taskFunc, error) {
	var task pipeline.VerifyTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return c.pipe.ProcessVerifyChunk(ctx, task)
	}, nil
}

func (c *Consumer) handle(ctx context.Context, m *nats.Msg, decode func([]byte) (taskFunc, error)) {
	run, err := decode(m.Data)
	if err != nil {
		// Malformed payloads never improve on redelivery.
		c.logger.Error("drop undecodable task",
			logging.String("subject", m.Subject),
			logging.Error(err))
		_ = m.Ack()
		return
	}

	if err := run(ctx); err != nil {
		if services.IsRetryable(err) {
			c.logger.Warn("task failed, requesting redelivery",
				logging.String("subject", m.Subject),
				logging.Error(err))
			_ = m.Nak()
			return
		}
		c.logger.Error("task failed permanently",
			logging.String("subject", m.Subject),
			logging.Error(err))
	}
	_ = m.Ack()
}

// Close drains the subscriptions and the connection.
func (c *Consumer) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if c.nc != nil {
		c.nc.Close()
	}
}
