package field

// Viewport breakpoints in logical pixels
const (
	BreakpointSmall  = 640
	BreakpointMedium = 1024
)

// EffectiveDensity scales the configured density to the viewport width
// An unknown width leaves density unscaled
func EffectiveDensity(density, width int, known bool) int {
	if !known {
		return density
	}
	switch {
	case width < BreakpointSmall:
		return max(8, density*3/10)
	case width < BreakpointMedium:
		return max(12, density*6/10)
	default:
		return density
	}
}
