package tui

// Color constants for the pomo TUI theme
const (
	// Base Colors
	ColorCardBackground = "#2A1614" // Dark tomato
	ColorBorder         = "#4A3B3A" // Warm grey

	// Text Colors
	ColorPrimaryText   = "#F2ECE6" // Titles, user input, the clock at rest
	ColorSecondaryText = "#C7B8B1" // Labels and hints
	ColorDisabledText  = "#7A6D6A" // Empty values
	ColorHelpText      = "240"     // Dark grey for help text

	// Accent Colors (tomato theme)
	ColorAccentMain   = "#E5484D" // Logo, active borders
	ColorAccentBright = "#FF8A80" // Clock, highlights

	// State Colors
	ColorError   = "#EF4444" // Store errors
	ColorSuccess = "#22C55E" // Session logged
	ColorWarning = "#F59E0B" // Overtime, sleep gaps
)
