// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// SlogHandler routes log/slog records into zerolog. The supervisor tree
// needs a *slog.Logger for sutureslog; this keeps its output in the same
// stream as everything else.
type SlogHandler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	prefix string
}

// NewSlogHandler wraps the global zerolog logger.
func NewSlogHandler() *SlogHandler {
	return &SlogHandler{logger: Logger()}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	zl := slogToZerologLevel(level)
	return zl >= h.logger.GetLevel() && zl >= zerolog.GlobalLevel()
}

// Handle writes the record as a zerolog event.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface
func (h *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	event := h.logger.WithLevel(slogToZerologLevel(record.Level))
	if event == nil {
		return nil
	}

	for _, attr := range h.attrs {
		event = addAttr(event, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		event = addAttr(event, h.prefix, attr)
		return true
	})

	event.Msg(record.Message)
	return nil
}

// WithAttrs returns a new Handler with the given attributes, qualified by
// the groups opened so far.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, attr := range attrs {
		merged = append(merged, slog.Attr{Key: h.prefix + attr.Key, Value: attr.Value})
	}
	return &SlogHandler{logger: h.logger, attrs: merged, prefix: h.prefix}
}

// WithGroup returns a new Handler whose keys are qualified by name.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func addAttr(event *zerolog.Event, prefix string, attr slog.Attr) *zerolog.Event {
	key := prefix + attr.Key

	switch attr.Value.Kind() {
	case slog.KindString:
		return event.Str(key, attr.Value.String())
	case slog.KindInt64:
		return event.Int64(key, attr.Value.Int64())
	case slog.KindUint64:
		return event.Uint64(key, attr.Value.Uint64())
	case slog.KindFloat64:
		return event.Float64(key, attr.Value.Float64())
	case slog.KindBool:
		return event.Bool(key, attr.Value.Bool())
	case slog.KindDuration:
		return event.Dur(key, attr.Value.Duration())
	case slog.KindTime:
		return event.Time(key, attr.Value.Time())
	case slog.KindGroup:
		groupPrefix := key + "."
		for _, ga := range attr.Value.Group() {
			event = addAttr(event, groupPrefix, ga)
		}
		return event
	default:
		return event.Interface(key, attr.Value.Any())
	}
}

func slogToZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelDebug:
		return zerolog.TraceLevel
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// NewSlogLogger creates an slog.Logger backed by the global zerolog logger.
//
//	supervisorLog := logging.NewSlogLogger()
//	hook := (&sutureslog.Handler{Logger: supervisorLog}).MustHook()
func NewSlogLogger() *slog.Logger {
	return slog.New(NewSlogHandler())
}
