// Package client implements the interactive line client: it sends what
// the user types and prints whatever the server pushes back.
package client

import "github.com/fatih/color"

// Display colors server lines by their leading token
type Display struct {
	okColor    *color.Color
	errColor   *color.Color
	eventColor *color.Color
	infoColor  *color.Color
}

// NewDisplay creates a display with the configured colors
func NewDisplay() *Display {
	return &Display{
		okColor:    color.New(color.FgGreen),
		errColor:   color.New(color.FgRed),
		eventColor: color.New(color.FgYellow),
		infoColor:  color.New(color.FgWhite),
	}
}

// PrintBanner displays the client banner
func (d *Display) PrintBanner() {
	banner := `
╔═══════════════════════════════╗
║        TRIS  —  CLIENT        ║
║      3x3 over the network     ║
╚═══════════════════════════════╝
`
	d.eventColor.Println(banner)
}

// PrintServerLine prints one line received from the server
func (d *Display) PrintServerLine(line string) {
	switch {
	case hasPrefix(line, "OK"):
		d.okColor.Println(line)
	case hasPrefix(line, "ERR"):
		d.errColor.Println(line)
	case hasPrefix(line, "EVENT"):
		d.eventColor.Println(line)
	default:
		d.infoColor.Println(line)
	}
}

// PrintInfo prints a local (non-server) informational line
func (d *Display) PrintInfo(msg string) {
	d.infoColor.Println(msg)
}

func hasPrefix(line, token string) bool {
	return len(line) >= len(token) &&
		line[:len(token)] == token &&
		(len(line) == len(token) || line[len(token)] == ' ')
}
