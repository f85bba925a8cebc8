package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// stdout is where listing commands render. Tests swap it.
var stdout io.Writer = os.Stdout

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

func tableHeader(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, name := range names {
		row[i] = text.FgHiCyan.Sprint(name)
	}
	return row
}

func printEmpty(message string) {
	fmt.Fprintln(stdout, text.FgYellow.Sprint(message))
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}

func methodText(method string) string {
	switch method {
	case "GET":
		return text.FgGreen.Sprint(method)
	case "POST":
		return text.FgYellow.Sprint(method)
	case "PUT":
		return text.FgBlue.Sprint(method)
	case "DELETE":
		return text.FgRed.Sprint(method)
	default:
		return method
	}
}
