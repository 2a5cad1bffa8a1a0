package tui

import (
	"context"

	"github.com/goliatone/go-certupload/pkg/notify"
)

// Notifier prints controller notifications through a PromptDriver.
type Notifier struct {
	driver PromptDriver
	theme  Theme
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier builds a Notifier. A zero theme falls back to DefaultTheme.
func NewNotifier(driver PromptDriver, theme Theme) *Notifier {
	if theme == (Theme{}) {
		theme = DefaultTheme
	}
	return &Notifier{driver: driver, theme: theme}
}

// Notify prints n on a single line.
func (n *Notifier) Notify(ctx context.Context, note notify.Notification) {
	if n == nil || n.driver == nil {
		return
	}
	prefix := n.theme.InfoPrefix
	if note.IsError() {
		prefix = n.theme.ErrorPrefix
	}
	_ = n.driver.Info(ctx, prefix+note.String())
}
