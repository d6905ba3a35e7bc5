package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF9900"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

func heading(w io.Writer, title string) {
	line := strings.Repeat("=", max(0, 72-len(title)-1))
	fmt.Fprintf(w, "\n%s\n", headingStyle.Render(title+" "+line))
}

func field(w io.Writer, key string, value any) {
	fmt.Fprintf(w, "  %s %v\n", keyStyle.Render(key+":"), value)
}

func printModel(w io.Writer, m bedrockllm.ModelInfo) {
	fmt.Fprintf(w, "- Model ID: %s\n", m.ID)
	field(w, "Name", m.Name)
	field(w, "Provider", m.Provider)
	if len(m.OutputModalities) > 0 {
		field(w, "Output", strings.Join(m.OutputModalities, ", "))
	}
	fmt.Fprintln(w)
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("error: "+err.Error()))
}
