// Package html renders the upload selection display as an HTML card. Templates
// are embedded and executed through the pongo2 engine adapter; colours and
// spacing come from go-theme tokens exposed as CSS custom properties.
package html
