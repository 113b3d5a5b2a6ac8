package errors

import "log/slog"

// AttrsToArgs converts attrs into the variadic form accepted by slog.Logger methods.
func AttrsToArgs(attrs []slog.Attr) []any {
	if len(attrs) == 0 {
		return nil
	}
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// LogAttrs builds the standard attribute set for err: its category, message and context.
func LogAttrs(err error, fallback Category) []slog.Attr {
	if err == nil {
		return nil
	}
	attrs := []slog.Attr{
		slog.String("category", CategoryOf(err, fallback).String()),
		slog.String("error", err.Error()),
	}
	if typed, ok := err.(*Error); ok && typed != nil {
		if ctxMap := typed.Context.ToMap(); len(ctxMap) > 0 {
			attrs = append(attrs, slog.Any("context", ctxMap))
		}
	}
	return attrs
}
