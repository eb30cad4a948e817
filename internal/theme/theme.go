// Package theme defines the immutable theme registry.
package theme

import (
	"errors"
	"fmt"
)

// ErrUnknownTheme is returned when an identifier is not in the registry.
var ErrUnknownTheme = errors.New("unknown theme")

// ID identifies a registered theme.
type ID string

// Registered theme identifiers, in display order.
const (
	MidnightBlue  ID = "midnightBlue"
	Monochrome    ID = "monochrome"
	ArcticWhite   ID = "arcticWhite"
	EmeraldForest ID = "emeraldForest"
	SunsetAmber   ID = "sunsetAmber"
)

// DefaultID is the theme used when nothing valid is persisted.
const DefaultID = MidnightBlue

// Colors holds the semantic colour roles of a theme.
type Colors struct {
	Primary       string
	PrimaryDark   string
	Background    string
	Surface       string
	Text          string
	TextSecondary string
	TextDark      string
	Border        string
	Error         string
	Success       string
	Warning       string
	Info          string
	White         string
	Black         string
}

// FontSizes is the type scale in points.
type FontSizes struct {
	XS, SM, Base, LG, XL, XXL, XXXL, XXXXL int
}

// FontWeights are CSS-style numeric weights.
type FontWeights struct {
	Regular, Medium, SemiBold, Bold string
}

// LineHeights are multipliers of the font size.
type LineHeights struct {
	Tight, Normal, Relaxed float64
}

// Typography groups font settings.
type Typography struct {
	FontFamily string
	FontSize   FontSizes
	FontWeight FontWeights
	LineHeight LineHeights
}

// Spacing follows a 4px grid.
type Spacing struct {
	XS, SM, MD, LG, XL, XXL, XXXL, XXXXL int
}

// BorderRadius values; Full is effectively a pill.
type BorderRadius struct {
	None, SM, MD, LG, XL, XXL, Full int
}

// Shadow describes a drop shadow.
type Shadow struct {
	Color     string
	OffsetX   int
	OffsetY   int
	Opacity   float64
	Radius    int
	Elevation int
}

// Shadows holds the small/medium/large elevations.
type Shadows struct {
	SM, MD, LG Shadow
}

// Theme is a full visual style record.
type Theme struct {
	ID           ID
	Name         string
	Dark         bool
	Colors       Colors
	Typography   Typography
	Spacing      Spacing
	BorderRadius BorderRadius
	Shadows      Shadows
}

// Lookup returns the theme registered under id.
func Lookup(id ID) (Theme, bool) {
	for _, t := range registry {
		if t.ID == id {
			return t, true
		}
	}
	return Theme{}, false
}

// Parse validates a raw identifier against the registry. Matching is exact.
func Parse(raw string) (ID, error) {
	id := ID(raw)
	if _, ok := Lookup(id); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, raw)
	}
	return id, nil
}

// Default returns the default theme.
func Default() Theme {
	t, _ := Lookup(DefaultID)
	return t
}

// IDs lists registered identifiers in display order.
func IDs() []ID {
	ids := make([]ID, 0, len(registry))
	for _, t := range registry {
		ids = append(ids, t.ID)
	}
	return ids
}

// All returns every registered theme in display order.
func All() []Theme {
	out := make([]Theme, len(registry))
	copy(out, registry)
	return out
}
