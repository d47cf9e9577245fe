package notify

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a notification out to every non-nil notifier and combines errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, title, text string) error

func (f Func) Send(ctx context.Context, title, text string) error { return f(ctx, title, text) }

// Log is the local notification hook: it writes status changes to the logger.
type Log struct {
	Logger *zap.Logger
}

func NewLog(l *zap.Logger) *Log {
	return &Log{Logger: l}
}

func (l *Log) Send(_ context.Context, title, text string) error {
	l.Logger.Info("notification", zap.String("title", title), zap.String("text", text))
	return nil
}
