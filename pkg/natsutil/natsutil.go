// Package natsutil wraps NATS with JSON-typed publish, subscribe and
// request-reply helpers that carry OpenTelemetry trace context in headers.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// DefaultRequestTimeout bounds Request when ctx has no deadline.
const DefaultRequestTimeout = 5 * time.Second

// headerCarrier adapts nats.Msg headers to propagation.TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

func encode[T any](ctx context.Context, subject string, v T) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("natsutil: encode %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg, nil
}

func extract(msg *nats.Msg) context.Context {
	return otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
}

// Publish sends v as JSON on subject.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := encode(ctx, subject, v)
	if err != nil {
		return err
	}
	if err := nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("natsutil: publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe decodes each message on subject into T and hands it to handler.
// Messages that don't decode are logged and dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			slog.Warn("natsutil: dropping malformed message", "subject", subject, "err", err)
			return
		}
		handler(extract(msg), v)
	})
}

// Request sends req on subject and decodes the reply. Without a deadline on
// ctx the call is bounded by DefaultRequestTimeout.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
	}
	msg, err := encode(ctx, subject, req)
	if err != nil {
		return zero, err
	}
	reply, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, fmt.Errorf("natsutil: request %s: %w", subject, err)
	}
	var out Resp
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return zero, fmt.Errorf("natsutil: decode reply on %s: %w", subject, err)
	}
	return out, nil
}

// Respond serves request-reply on subject. Each decoded request goes through
// handler and the result is sent back as JSON. Handler errors are logged and
// the requester times out.
func Respond[Req, Resp any](nc *nats.Conn, subject string, handler func(context.Context, Req) (Resp, error)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var req Req
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			slog.Warn("natsutil: dropping malformed request", "subject", subject, "err", err)
			return
		}
		ctx := extract(msg)
		resp, err := handler(ctx, req)
		if err != nil {
			slog.Error("natsutil: handler failed", "subject", subject, "err", err)
			return
		}
		data, err := json.Marshal(resp)
		if err != nil {
			slog.Error("natsutil: encode reply", "subject", subject, "err", err)
			return
		}
		if err := msg.Respond(data); err != nil {
			slog.Warn("natsutil: respond", "subject", subject, "err", err)
		}
	})
}

// Publisher binds Publish to a connection so callers can depend on a
// method instead of the generic function.
type Publisher struct {
	Conn *nats.Conn
}

// Publish sends v as JSON on subject.
func (p Publisher) Publish(ctx context.Context, subject string, v any) error {
	return Publish(ctx, p.Conn, subject, v)
}
