package html

import (
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// DefaultThemeName names the built-in manifest.
const DefaultThemeName = "certupload"

// DefaultManifest is the built-in look of the card with a "dark" variant.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			"color.primary":    "#2563eb",
			"color.surface":    "#ffffff",
			"color.text":       "#111827",
			"color.muted":      "#6b7280",
			"radius.card":      "0.75rem",
			"spacing.grid.gap": "0.5rem",
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"color.surface": "#111827",
					"color.text":    "#f9fafb",
					"color.muted":   "#9ca3af",
				},
			},
		},
	}
}

// ManifestSelector resolves themes from a fixed set of manifests.
type ManifestSelector struct {
	manifests   map[string]*theme.Manifest
	defaultName string
}

var _ theme.ThemeSelector = (*ManifestSelector)(nil)

// NewManifestSelector indexes manifests by name. The first manifest is the
// default used when Select receives an empty name.
func NewManifestSelector(manifests ...*theme.Manifest) *ManifestSelector {
	s := &ManifestSelector{manifests: make(map[string]*theme.Manifest, len(manifests))}
	for _, m := range manifests {
		if m == nil || strings.TrimSpace(m.Name) == "" {
			continue
		}
		if s.defaultName == "" {
			s.defaultName = m.Name
		}
		s.manifests[m.Name] = m
	}
	return s
}

// Select returns the named manifest. An unknown variant is an error; an empty
// variant selects the base tokens.
func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultName
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("html: unknown theme %q", name)
	}
	variant = strings.TrimSpace(variant)
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("html: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// resolveTokens merges the variant tokens over the manifest tokens and returns
// them sorted by key.
func resolveTokens(sel *theme.Selection) []map[string]any {
	if sel == nil || sel.Manifest == nil {
		return nil
	}
	merged := make(map[string]string, len(sel.Manifest.Tokens))
	for key, value := range sel.Manifest.Tokens {
		merged[key] = value
	}
	if variant, ok := sel.Manifest.Variants[sel.Variant]; ok {
		for key, value := range variant.Tokens {
			merged[key] = value
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		value := strings.TrimSpace(merged[key])
		if value == "" || strings.ContainsAny(value, ";{}") {
			continue
		}
		out = append(out, map[string]any{"key": key, "value": value})
	}
	return out
}
