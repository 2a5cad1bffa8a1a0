package tui

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/goliatone/go-certupload/pkg/upload"
)

// Theme captures the prefixes used when printing messages. Keep minimal to
// avoid coupling session logic to ANSI specifics.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// DefaultTheme is used when WithTheme is not supplied.
var DefaultTheme = Theme{InfoPrefix: "✔ ", ErrorPrefix: "✖ "}

// SummaryHook observes the selection display right before the upload is
// confirmed, e.g. to write the HTML summary card.
type SummaryHook func(ctx context.Context, view upload.View) error

// GlobFunc expands a path pattern.
type GlobFunc func(pattern string) ([]string, error)

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// WithSummaryHook registers a hook run before each confirmation.
func WithSummaryHook(hook SummaryHook) Option {
	return func(s *Session) {
		s.summaryHook = hook
	}
}

// WithGlob overrides filepath.Glob for path expansion.
func WithGlob(fn GlobFunc) Option {
	return func(s *Session) {
		if fn != nil {
			s.glob = fn
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

var defaultGlob GlobFunc = filepath.Glob
