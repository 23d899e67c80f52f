// Package terminal renders the icon field on a tcell screen.
//
// Positions map from percent to cells; the viewport width handed to the field is the
// column count times a configured cell width so the pixel breakpoints keep their meaning.
// Opacity is rendered as foreground brightness against the default background and
// bones pick a line glyph from their current rotation.
package terminal
