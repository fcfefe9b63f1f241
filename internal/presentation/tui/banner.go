package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`  ___                 _           ___         _   `, "#38bdf8"},
	{` / __| ___ _ ___ __ _(_)__ ___   |   \ ___ __| |__`, "#22d3ee"},
	{` \__ \/ -_) '_\ V / | / _/ -_)  | |) / -_|_-< / /`, "#2dd4bf"},
	{` |___/\___|_|  \_/  |_\__\___|  |___/\___/__/_\_\`, "#34d399"},
}

// PrintBanner writes the chat banner and the version to w.
// Colors degrade to the terminal's profile; pipes get plain text.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  service desk assistant "+version).Faint())
	fmt.Fprintln(w)
}
