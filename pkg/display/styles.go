package display

import "github.com/pterm/pterm"

var (
	TitleStyle   = pterm.NewStyle(pterm.Bold, pterm.Underscore)
	MutedStyle   = pterm.NewStyle(pterm.FgGray)
	PathStyle    = pterm.NewStyle(pterm.FgCyan)
	SuccessStyle = pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	ErrorStyle   = pterm.NewStyle(pterm.FgRed, pterm.Bold)
	WarningStyle = pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	InfoStyle    = pterm.NewStyle(pterm.FgBlue)
)

var (
	SuccessIndicator = SuccessStyle.Sprint("✓")
	ErrorIndicator   = ErrorStyle.Sprint("✗")
	WarningIndicator = WarningStyle.Sprint("!")
	InfoIndicator    = InfoStyle.Sprint("•")
	PendingIndicator = MutedStyle.Sprint("○")
)

func indent(s string, level int) string {
	pad := ""
	for i := 0; i < level; i++ {
		pad += "  "
	}
	return pad + s
}
