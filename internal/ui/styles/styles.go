// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor     = lipgloss.AdaptiveColor{Light: "#222222", Dark: "#CCCCCC"} // Main/primary text
	TextSecondaryColor   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"} // Labels, secondary info
	TextMutedColor       = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#696969"} // Hints, help text, footers
	TextPlaceholderColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#777777"} // Input placeholders

	// Semantic color names - Border
	BorderDefaultColor        = lipgloss.AdaptiveColor{Light: "#BBBBBB", Dark: "#696969"} // Unfocused borders
	BorderHighlightFocusColor = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#C99A06", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#D63031", Dark: "#FF8787"}

	// Button colors
	ButtonTextColor             = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}
	ButtonPrimaryBgColor        = lipgloss.AdaptiveColor{Light: "#1A5276", Dark: "#1A5276"}
	ButtonPrimaryFocusBgColor   = lipgloss.AdaptiveColor{Light: "#3498DB", Dark: "#3498DB"}
	ButtonSecondaryBgColor      = lipgloss.AdaptiveColor{Light: "#2D3436", Dark: "#2D3436"}
	ButtonSecondaryFocusBgColor = lipgloss.AdaptiveColor{Light: "#636E72", Dark: "#636E72"}

	baseButtonStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true)

	PrimaryButtonStyle = baseButtonStyle.
				Foreground(ButtonTextColor).
				Background(ButtonPrimaryBgColor)

	PrimaryButtonFocusedStyle = baseButtonStyle.
					Foreground(ButtonTextColor).
					Background(ButtonPrimaryFocusBgColor).
					Underline(true).
					UnderlineSpaces(true)

	SecondaryButtonStyle = baseButtonStyle.
				Foreground(ButtonTextColor).
				Background(ButtonSecondaryBgColor)

	SecondaryButtonFocusedStyle = baseButtonStyle.
					Foreground(ButtonTextColor).
					Background(ButtonSecondaryFocusBgColor).
					Underline(true).
					UnderlineSpaces(true)

	// Overlay colors
	OverlayTitleColor  = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#C9C9C9"}
	OverlayBorderColor = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#8C8C8C"}

	// Toast notification colors
	ToastBorderSuccessColor = StatusSuccessColor
	ToastBorderErrorColor   = StatusErrorColor
	ToastBorderInfoColor    = BorderHighlightFocusColor
	ToastBorderWarnColor    = StatusWarningColor

	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextPrimaryColor).
			Padding(0, 1)

	// Stepper
	StepStyle        = lipgloss.NewStyle().Foreground(TextMutedColor).Padding(0, 1)
	StepCurrentStyle = lipgloss.NewStyle().Foreground(BorderHighlightFocusColor).Bold(true).Padding(0, 1)
	StepErrorMark    = lipgloss.NewStyle().Foreground(StatusErrorColor).Bold(true).Render("!")

	// Fields
	FieldLabelStyle    = lipgloss.NewStyle().Foreground(TextSecondaryColor).Bold(true)
	FieldRequiredStyle = lipgloss.NewStyle().Foreground(StatusErrorColor)
	FieldErrorStyle    = lipgloss.NewStyle().Foreground(StatusErrorColor)
	FieldHelpStyle     = lipgloss.NewStyle().Foreground(TextMutedColor)
	FieldDisplayStyle  = lipgloss.NewStyle().Foreground(TextMutedColor).Italic(true)

	// Footer / status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	// Error display
	ErrorStyle = lipgloss.NewStyle().
			Foreground(StatusErrorColor).
			Bold(true).
			Padding(1, 2)
)
