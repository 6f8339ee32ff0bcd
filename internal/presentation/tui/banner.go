package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Reticula banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, colour string
	}{
		{"  ___     _   _          _       ", "#34d399"},
		{" | _ \\___| |_(_)__ _  _| |__ _  ", "#2dd4bf"},
		{" |   / -_)  _| / _| || | / _` | ", "#22d3ee"},
		{" |_|_\\___|\\__|_\\__|\\_,_|_\\__,_| ", "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.colour)))
	}
	fmt.Fprintln(w)
}
