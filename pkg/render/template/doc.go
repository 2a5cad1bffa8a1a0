// Package template defines the engine seam the HTML summary renderer uses.
// Implementations live in subpackages; gotemplate provides the pongo2 backed
// engine.
package template
