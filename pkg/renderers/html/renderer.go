package html

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-certupload/pkg/preview"
	"github.com/goliatone/go-certupload/pkg/render/template"
	"github.com/goliatone/go-certupload/pkg/render/template/gotemplate"
	"github.com/goliatone/go-certupload/pkg/upload"
)

// DefaultTitle heads the card.
const DefaultTitle = "Upload Certificate Template"

const summaryTemplate = "summary"

//go:embed templates/*.tpl
var embedded embed.FS

// Templates exposes the embedded templates so callers can copy and override
// them through WithEngine.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return embedded
	}
	return sub
}

// Option configures a Renderer.
type Option func(*Renderer)

// Renderer turns an upload.View into the summary card.
type Renderer struct {
	engine      template.TemplateRenderer
	selector    theme.ThemeSelector
	themeName   string
	variant     string
	previewBase string
	action      string
	title       string
}

// WithEngine replaces the embedded template engine.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithThemeSelector sets the selector used to resolve theme tokens.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(r *Renderer) {
		if selector != nil {
			r.selector = selector
		}
	}
}

// WithTheme picks the theme and variant passed to the selector.
func WithTheme(name, variant string) Option {
	return func(r *Renderer) {
		r.themeName = strings.TrimSpace(name)
		r.variant = strings.TrimSpace(variant)
	}
}

// WithPreviewBaseURL makes image thumbnails point at a preview registry
// mounted at base instead of the raw blob reference.
func WithPreviewBaseURL(base string) Option {
	return func(r *Renderer) {
		r.previewBase = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithAction sets the form action, normally the createTemplate endpoint.
func WithAction(action string) Option {
	return func(r *Renderer) {
		r.action = strings.TrimSpace(action)
	}
}

// WithTitle overrides DefaultTitle.
func WithTitle(title string) Option {
	return func(r *Renderer) {
		if t := strings.TrimSpace(title); t != "" {
			r.title = t
		}
	}
}

// New builds a Renderer. Without WithThemeSelector the built-in manifest is
// used.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		title:  DefaultTitle,
		action: "/templates",
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.engine == nil {
		engine, err := gotemplate.New(gotemplate.WithFS(Templates()))
		if err != nil {
			return nil, fmt.Errorf("html: init engine: %w", err)
		}
		r.engine = engine
	}
	if r.selector == nil {
		r.selector = NewManifestSelector(DefaultManifest())
	}
	return r, nil
}

// Render produces the card for view.
func (r *Renderer) Render(ctx context.Context, view upload.View) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selection, err := r.selector.Select(r.themeName, r.variant)
	if err != nil {
		return nil, fmt.Errorf("html: select theme: %w", err)
	}

	out, err := r.engine.RenderTemplate(summaryTemplate, r.buildContext(view, selection))
	if err != nil {
		return nil, fmt.Errorf("html: render summary: %w", err)
	}
	return []byte(out), nil
}

func (r *Renderer) buildContext(view upload.View, selection *theme.Selection) map[string]any {
	data := map[string]any{
		"title":         r.title,
		"action":        r.action,
		"templateName":  sanitizeText(view.TemplateName),
		"imageType":     sanitizeText(view.ImageType),
		"userStatus":    view.UserStatus.String(),
		"placeholder":   view.UserPlaceholder(),
		"jrxmlSummary":  view.JRXMLSummary(),
		"submitting":    view.Submitting,
		"selectedLabel": "",
		"cssVars":       resolveTokens(selection),
	}
	if selection != nil {
		data["theme"] = selection.Theme
		data["variant"] = selection.Variant
	}
	if view.SelectedUser != nil {
		data["selectedLabel"] = fmt.Sprintf("Selected: %s (ID: %s)",
			sanitizeText(view.SelectedUser.Username), view.SelectedUser.ID)
	}

	options := make([]map[string]any, 0, len(view.Users))
	for _, u := range view.Users {
		options = append(options, map[string]any{
			"id":       u.ID.String(),
			"label":    sanitizeText(u.Label()),
			"selected": view.SelectedUser != nil && view.SelectedUser.ID == u.ID,
		})
	}
	data["users"] = options

	names := make([]string, 0, len(view.JRXMLNames))
	for _, name := range view.JRXMLNames {
		names = append(names, sanitizeText(name))
	}
	data["jrxmlNames"] = names

	previews := make([]map[string]any, 0, len(view.Previews))
	for i, ref := range view.Previews {
		name := ""
		if i < len(view.ImageNames) {
			name = sanitizeText(view.ImageNames[i])
		}
		previews = append(previews, map[string]any{
			"src":  r.previewSrc(ref),
			"name": name,
		})
	}
	data["previews"] = previews
	return data
}

func (r *Renderer) previewSrc(ref preview.Ref) string {
	if r.previewBase == "" {
		return string(ref)
	}
	return r.previewBase + "/" + ref.ID()
}
