package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"  __  __          _ _",
	" |  \\/  | ___  __| | | ___ _   _",
	" | |\\/| |/ _ \\/ _` | |/ _ \\ | | |",
	" | |  | |  __/ (_| | |  __/ |_| |",
	" |_|  |_|\\___|\\__,_|_|\\___|\\__, |",
	"                           |___/",
}

// Teal to green.
var bannerColors = []string{"#2dd4bf", "#34d399", "#4ade80", "#a3e635", "#facc15", "#fbbf24"}

// PrintBanner writes the Medley banner to w, colored when the terminal supports it.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).ColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w)
}
