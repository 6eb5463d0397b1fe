package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one header parameter line
type Param struct {
	Key   string
	Value string
}

// Printer provides methods for printing UI components to a writer.
// When styled is false every component falls back to plain text.
type Printer struct {
	out    io.Writer
	width  int
	styled bool
}

// NewPrinter creates a new Printer that writes to w.
// If w is nil, os.Stdout is used and styling follows whether it is a terminal.
func NewPrinter(w io.Writer) *Printer {
	styled := false
	if w == nil {
		w = os.Stdout
		styled = IsTerminal()
	}
	return &Printer{
		out:    w,
		width:  GetTerminalWidth(),
		styled: styled,
	}
}

// SetStyled forces styled or plain output
func (p *Printer) SetStyled(styled bool) *Printer {
	p.styled = styled
	return p
}

// Styled reports whether the printer renders lipgloss output
func (p *Printer) Styled() bool { return p.styled }

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	if !p.styled {
		return
	}
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintResult prints a result box, or its plain form
func (p *Printer) PrintResult(r *Result) {
	if !p.styled {
		p.Print(r.Plain())
		return
	}
	p.Println(r.SetWidth(p.width).Render())
}

// PrintSuccess prints a success box with the given details
func (p *Printer) PrintSuccess(title string, details ...Detail) {
	r := NewSuccessResult(title)
	r.Details = details
	p.PrintResult(r)
}

// PrintError prints a failure box with troubleshooting tips for err
func (p *Printer) PrintError(title string, err error) {
	p.PrintResult(NewFailureResult(title, err, nil))
}

// RenderHeader renders a command header box
func RenderHeader(title, command string, params []Param, width int) string {
	width = clampWidth(width)

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		HeaderCommandStyle.Render(command),
	)

	content := top
	if len(params) > 0 {
		dividerWidth := width - 6 // Account for border and padding
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		lines := make([]string, 0, len(params))
		for _, param := range params {
			lines = append(lines, HeaderParamKeyStyle.Render(param.Key+":")+" "+HeaderParamValueStyle.Render(param.Value))
		}
		content = lipgloss.JoinVertical(lipgloss.Left,
			top,
			RenderHorizontalDivider(dividerWidth, "─"),
			strings.Join(lines, "\n"),
		)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}
