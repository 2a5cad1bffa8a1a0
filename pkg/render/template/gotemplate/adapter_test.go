package gotemplate_test

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-certupload/pkg/render/template/gotemplate"
	"github.com/goliatone/go-certupload/pkg/testsupport"
)

//go:embed testdata/templates/*.tpl
var embeddedTemplates embed.FS

func newEngine(t *testing.T, opts ...gotemplate.Option) *gotemplate.Engine {
	t.Helper()
	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	engine, err := gotemplate.New(append([]gotemplate.Option{gotemplate.WithFS(templatesFS)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplateWritesResultAndWriters(t *testing.T) {
	engine := newEngine(t, gotemplate.WithGlobalData(map[string]any{"app": "certupload"}))

	got, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("greeting", map[string]any{"name": "  Ada  "}, w)
	})
	want := "Hello Ada from certupload\n"
	if got != want {
		t.Fatalf("result mismatch\nwant: %q\n got: %q", want, got)
	}
	if written != want {
		t.Fatalf("writer mismatch\nwant: %q\n got: %q", want, written)
	}
}

func TestEngine_RenderStringUsesJSONFieldNames(t *testing.T) {
	engine := newEngine(t)
	type view struct {
		TemplateName string `json:"templateName"`
	}
	got, err := engine.RenderString("<b>{{ templateName }}</b>", view{TemplateName: "<Cert>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "<b>&lt;Cert&gt;</b>" {
		t.Fatalf("expected escaped output, got %q", got)
	}
}

func TestEngine_CSSVarFilter(t *testing.T) {
	engine := newEngine(t)
	got, err := engine.RenderString(`{{ key|cssvar }}`, map[string]any{"key": "Color.Primary"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "--color-primary" {
		t.Fatalf("unexpected css var %q", got)
	}
}

func TestEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout_test", func(input any, _ any) (any, error) {
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout_test", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	got, err := engine.RenderString(`{{ name|shout_test }}`, map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "ADA!" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestNew_RequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without base dir or fs")
	}
}

func TestEngine_MissingTemplate(t *testing.T) {
	engine := newEngine(t)
	if _, err := engine.RenderTemplate("nope", nil); err == nil {
		t.Fatalf("expected error for missing template")
	}
}
