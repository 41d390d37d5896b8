package cli

import "github.com/charmbracelet/lipgloss"

// ANSI 256 palette, kept close to Cargo's diagnostic colors.
var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleNote    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	// Error code style (e.g. E3001)
	styleCode = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	styleHeader = lipgloss.NewStyle().Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleSQL    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func render(s lipgloss.Style, text string) string {
	if !EnableColors() {
		return text
	}
	return s.Render(text)
}

// Error returns text styled as an error label.
func Error(s string) string { return render(styleError, s) }

// Warning returns text styled as a warning label.
func Warning(s string) string { return render(styleWarning, s) }

// Success returns text styled as a success label.
func Success(s string) string { return render(styleSuccess, s) }

// Note returns text styled as a note label.
func Note(s string) string { return render(styleNote, s) }

// Info returns text styled as informational.
func Info(s string) string { return render(styleInfo, s) }

// Code returns text styled as an error code.
func Code(s string) string { return render(styleCode, s) }

// Header returns bold text for table headers and section titles.
func Header(s string) string { return render(styleHeader, s) }

// Dim returns muted text for secondary information.
func Dim(s string) string { return render(styleDim, s) }

// SQL returns text styled as a SQL statement.
func SQL(s string) string { return render(styleSQL, s) }
