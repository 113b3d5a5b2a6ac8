package traffic

import (
	"log/slog"

	terr "tcshaper/internal/errors"
)

func (s *Shaper) handleCategorizedError(message, iface string, err error, defaultCategory terr.Category) {
	if s.logger == nil || err == nil {
		return
	}

	attrs := terr.LogAttrs(err, defaultCategory)
	if iface != "" {
		attrs = append(attrs, slog.String("interface", iface))
	}

	switch terr.CategoryOf(err, defaultCategory) {
	case terr.CategoryOptional:
		s.logger.Debug(message, terr.AttrsToArgs(attrs)...)
	case terr.CategoryRecoverable:
		s.logger.Warn(message, terr.AttrsToArgs(attrs)...)
	default:
		s.logger.Error(message, terr.AttrsToArgs(attrs)...)
	}
}

func (s *Shaper) logOptional(message, iface string, err error, ctx terr.ErrorContext) {
	if err == nil {
		return
	}
	s.handleCategorizedError(message, iface, terr.New(terr.CategoryOptional, err, ctx), terr.CategoryOptional)
}

func wrapInterfaceError(err error, iface, operation string, extras terr.ErrorContext) error {
	if err == nil {
		return nil
	}
	return terr.WrapRecoverable(err, operation, terr.ErrorContext{Interface: iface}, extras)
}
