package theme

var baseTypography = Typography{
	FontFamily: "System",
	FontSize:   FontSizes{XS: 12, SM: 14, Base: 16, LG: 18, XL: 20, XXL: 24, XXXL: 30, XXXXL: 36},
	FontWeight: FontWeights{Regular: "400", Medium: "500", SemiBold: "600", Bold: "700"},
	LineHeight: LineHeights{Tight: 1.2, Normal: 1.5, Relaxed: 1.75},
}

var baseSpacing = Spacing{XS: 4, SM: 8, MD: 16, LG: 24, XL: 32, XXL: 40, XXXL: 48, XXXXL: 64}

var baseBorderRadius = BorderRadius{None: 0, SM: 4, MD: 8, LG: 12, XL: 16, XXL: 24, Full: 9999}

var baseShadows = Shadows{
	SM: Shadow{Color: "#000000", OffsetY: 1, Opacity: 0.05, Radius: 2, Elevation: 2},
	MD: Shadow{Color: "#000000", OffsetY: 2, Opacity: 0.1, Radius: 4, Elevation: 4},
	LG: Shadow{Color: "#000000", OffsetY: 4, Opacity: 0.15, Radius: 8, Elevation: 8},
}

func newTheme(id ID, name string, dark bool, colors Colors) Theme {
	colors.White = "#FFFFFF"
	colors.Black = "#000000"
	return Theme{
		ID:           id,
		Name:         name,
		Dark:         dark,
		Colors:       colors,
		Typography:   baseTypography,
		Spacing:      baseSpacing,
		BorderRadius: baseBorderRadius,
		Shadows:      baseShadows,
	}
}

// registry order is the display order.
var registry = []Theme{
	newTheme(MidnightBlue, "Midnight Blue", true, Colors{
		Primary:       "#0037FA",
		PrimaryDark:   "#0D2F56",
		Background:    "#030812",
		Surface:       "#1E496D",
		Text:          "#C0C4C3",
		TextSecondary: "#6E8BA0",
		TextDark:      "#565B5F",
		Border:        "#565B5F",
		Error:         "#EF4444",
		Success:       "#10B981",
		Warning:       "#F59E0B",
		Info:          "#3B82F6",
	}),
	newTheme(Monochrome, "Monochrome", true, Colors{
		Primary:       "#E5E5E5",
		PrimaryDark:   "#A3A3A3",
		Background:    "#0A0A0A",
		Surface:       "#171717",
		Text:          "#FAFAFA",
		TextSecondary: "#A3A3A3",
		TextDark:      "#525252",
		Border:        "#404040",
		Error:         "#F87171",
		Success:       "#4ADE80",
		Warning:       "#FBBF24",
		Info:          "#93C5FD",
	}),
	newTheme(ArcticWhite, "Arctic White", false, Colors{
		Primary:       "#2563EB",
		PrimaryDark:   "#1E40AF",
		Background:    "#F8FAFC",
		Surface:       "#FFFFFF",
		Text:          "#0F172A",
		TextSecondary: "#475569",
		TextDark:      "#334155",
		Border:        "#CBD5E1",
		Error:         "#DC2626",
		Success:       "#059669",
		Warning:       "#D97706",
		Info:          "#0284C7",
	}),
	newTheme(EmeraldForest, "Emerald Forest", true, Colors{
		Primary:       "#10B981",
		PrimaryDark:   "#065F46",
		Background:    "#04130D",
		Surface:       "#0B2B1F",
		Text:          "#D1FAE5",
		TextSecondary: "#6EE7B7",
		TextDark:      "#34635A",
		Border:        "#1F4D3D",
		Error:         "#F87171",
		Success:       "#34D399",
		Warning:       "#FBBF24",
		Info:          "#67E8F9",
	}),
	newTheme(SunsetAmber, "Sunset Amber", true, Colors{
		Primary:       "#F59E0B",
		PrimaryDark:   "#B45309",
		Background:    "#1A0F05",
		Surface:       "#2E1A0A",
		Text:          "#FDE68A",
		TextSecondary: "#D6A15B",
		TextDark:      "#7C5A2E",
		Border:        "#5C3D1A",
		Error:         "#F87171",
		Success:       "#A3E635",
		Warning:       "#FB923C",
		Info:          "#7DD3FC",
	}),
}
