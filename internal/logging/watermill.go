package logging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
)

// WatermillAdapter routes watermill's internal logging through a Logger.
// Trace is folded into Debug.
type WatermillAdapter struct {
	l Logger
}

var _ watermill.LoggerAdapter = (*WatermillAdapter)(nil)

func NewWatermillAdapter(l Logger) *WatermillAdapter {
	return &WatermillAdapter{l: l}
}

func fieldsToArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

func (w *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	args := append(fieldsToArgs(fields), "error", err)
	w.l.Error(context.Background(), msg, args...)
}

func (w *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	w.l.Info(context.Background(), msg, fieldsToArgs(fields)...)
}

func (w *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	w.l.Debug(context.Background(), msg, fieldsToArgs(fields)...)
}

func (w *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	w.l.Debug(context.Background(), msg, fieldsToArgs(fields)...)
}

func (w *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{l: w.l.With(fieldsToArgs(fields)...)}
}
