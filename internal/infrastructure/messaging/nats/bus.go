package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/resilience"
)

const (
	DefaultRefreshSubject   = "corpus.refreshed"
	DefaultAnalyticsSubject = "analytics.query"
)

// Bus carries corpus refresh notifications between the indexer and the API
// instances, and query analytics events to whoever listens.
type Bus struct {
	conn             *nats.Conn
	refreshSubject   string
	analyticsSubject string
	executor         *resilience.Executor
	logger           *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	RefreshSubject       string
	AnalyticsSubject     string
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url string) (*Bus, error) {
	return NewWithOptions(url, Options{})
}

func NewWithOptions(url string, options Options) (*Bus, error) {
	options = options.withDefaults()
	logger := options.Logger

	conn, err := nats.Connect(
		url,
		nats.Name("funding-rag-assistant"),
		nats.Timeout(options.ConnectTimeout),
		nats.ReconnectWait(options.ReconnectWait),
		nats.MaxReconnects(options.MaxReconnects),
		nats.RetryOnFailedConnect(*options.RetryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:             conn,
		refreshSubject:   options.RefreshSubject,
		analyticsSubject: options.AnalyticsSubject,
		executor:         options.ResilienceExecutor,
		logger:           logger,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 2 * time.Second
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 60
	}
	if o.RetryOnFailedConnect == nil {
		retry := true
		o.RetryOnFailedConnect = &retry
	}
	if o.RefreshSubject == "" {
		o.RefreshSubject = DefaultRefreshSubject
	}
	if o.AnalyticsSubject == "" {
		o.AnalyticsSubject = DefaultAnalyticsSubject
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func (b *Bus) PublishCorpusRefreshed(ctx context.Context, version string) error {
	return b.publish(ctx, "nats.publish_refresh", b.refreshSubject, []byte(version))
}

func (b *Bus) PublishQueryEvent(ctx context.Context, event domain.QueryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode query event: %w", err)
	}
	return b.publish(ctx, "nats.publish_analytics", b.analyticsSubject, payload)
}

func (b *Bus) publish(ctx context.Context, operation, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := b.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if b.executor != nil {
		err = b.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeCorpusRefreshed delivers every refresh to this process. It is a
// plain subscription, not a queue group: each API instance must reload.
// It blocks until ctx is done.
func (b *Bus) SubscribeCorpusRefreshed(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := b.conn.Subscribe(b.refreshSubject, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		version := string(msg.Data)
		if err := handler(handlerCtx, version); err != nil {
			b.logger.Error("corpus_refresh_failed", "version", version, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
