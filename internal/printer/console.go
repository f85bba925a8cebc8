package printer

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/funnyzak/reqstash/internal/config"
	"github.com/funnyzak/reqstash/internal/logger"
	"github.com/funnyzak/reqstash/pkg/record"
)

// ColorScheme color scheme
type ColorScheme struct {
	MethodGET    *color.Color
	MethodPOST   *color.Color
	MethodPUT    *color.Color
	MethodDELETE *color.Color
	Status2xx    *color.Color
	Status3xx    *color.Color
	Status4xx    *color.Color
	Status5xx    *color.Color
	HeaderKey    *color.Color
	HeaderValue  *color.Color
	Separator    *color.Color
	Meta         *color.Color
	BodyContent  *color.Color
	Notice       *color.Color
}

// NewColorScheme creates a new color scheme
func NewColorScheme() *ColorScheme {
	return &ColorScheme{
		MethodGET:    color.New(color.FgBlue, color.Bold),
		MethodPOST:   color.New(color.FgGreen, color.Bold),
		MethodPUT:    color.New(color.FgYellow, color.Bold),
		MethodDELETE: color.New(color.FgRed, color.Bold),
		Status2xx:    color.New(color.FgGreen, color.Bold),
		Status3xx:    color.New(color.FgCyan, color.Bold),
		Status4xx:    color.New(color.FgYellow, color.Bold),
		Status5xx:    color.New(color.FgRed, color.Bold),
		HeaderKey:    color.New(color.FgCyan),
		HeaderValue:  color.New(color.FgWhite),
		Separator:    color.New(color.FgYellow, color.Bold),
		Meta:         color.New(color.FgHiBlack),
		BodyContent:  color.New(color.FgWhite),
		Notice:       color.New(color.FgHiYellow),
	}
}

// ConsolePrinter console printer
type ConsolePrinter struct {
	colorScheme    *ColorScheme
	logger         logger.Logger
	formatter      *bodyFormatter
	out            io.Writer
	includeHeaders bool
	query          string
}

// NewConsolePrinter creates a new console printer
func NewConsolePrinter(log logger.Logger, bodyCfg *config.BodyViewConfig) *ConsolePrinter {
	return &ConsolePrinter{
		colorScheme: NewColorScheme(),
		logger:      log,
		formatter:   newBodyFormatter(bodyCfg, log),
		out:         os.Stdout,
	}
}

// getTerminalWidth gets the current terminal width with fallback
func (p *ConsolePrinter) getTerminalWidth() int {
	if testWidth := os.Getenv("REQSTASH_TEST_WIDTH"); testWidth != "" {
		if width, err := strconv.Atoi(testWidth); err == nil {
			return clampWidth(width)
		}
	}

	f, ok := p.out.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return clampWidth(width)
}

func clampWidth(width int) int {
	switch {
	case width < 40:
		return 40
	case width > 150:
		return 150
	default:
		return width
	}
}

// wrapText wraps text to fit within maxWidth display columns, preserving words
func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	currentLine := words[0]
	currentWidth := runewidth.StringWidth(currentLine)

	for _, word := range words[1:] {
		wordWidth := runewidth.StringWidth(word)
		if currentWidth+1+wordWidth > maxWidth {
			lines = append(lines, currentLine)
			currentLine = word
			currentWidth = wordWidth
			continue
		}
		currentLine += " " + word
		currentWidth += 1 + wordWidth
	}
	return append(lines, currentLine)
}

// PrintResponse prints the status summary, optional headers and the body.
func (p *ConsolePrinter) PrintResponse(ex *Exchange) error {
	if ex == nil {
		return nil
	}

	body := ex.Body
	contentType := ex.Headers.Get("Content-Type")
	if p.query != "" {
		narrowed, isJSON, err := applyQuery(ex.Body, p.query)
		if err != nil {
			return err
		}
		body = narrowed
		if isJSON {
			contentType = "application/json"
		} else {
			contentType = "text/plain"
		}
	}

	width := p.getTerminalWidth()
	separator := strings.Repeat("-", width)

	p.colorScheme.Separator.Fprintln(p.out, separator)
	p.printStatusLine(ex)
	p.printMetadataLine(ex, width)
	p.colorScheme.Separator.Fprintln(p.out, separator)

	if p.includeHeaders {
		p.printHeaders(ex.Headers, width)
		fmt.Fprintln(p.out)
	}

	p.printBody(body, contentType)
	return nil
}

// PrintNotice prints an informational message.
func (p *ConsolePrinter) PrintNotice(msg string) error {
	_, err := p.colorScheme.Notice.Fprintln(p.out, msg)
	return err
}

func (p *ConsolePrinter) printStatusLine(ex *Exchange) {
	status := ex.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", ex.StatusCode, http.StatusText(ex.StatusCode))
	}
	p.statusColor(ex.StatusCode).Fprintf(p.out, "HTTP %s", status)
	fmt.Fprint(p.out, "  ")
	p.getMethodColor(ex.Method).Fprintf(p.out, "%s ", strings.ToUpper(ex.Method))
	fmt.Fprintln(p.out, ex.URL)
}

func (p *ConsolePrinter) printMetadataLine(ex *Exchange, width int) {
	parts := []string{
		"Time: " + ex.Duration.Round(time.Millisecond).String(),
		"Size: " + humanize.Bytes(uint64(len(ex.Body))),
	}
	if ct := ex.Headers.Get("Content-Type"); ct != "" {
		parts = append(parts, "Content-Type: "+ct)
	}
	if ex.Namespace != "" {
		parts = append(parts, "Namespace: "+ex.Namespace)
	}
	line := strings.Join(parts, " | ")
	if runewidth.StringWidth(line) > width {
		line = runewidth.Truncate(line, width, "...")
	}
	p.colorScheme.Meta.Fprintln(p.out, line)
}

func (p *ConsolePrinter) printHeaders(headers http.Header, width int) {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := strings.Join(headers[key], ", ")
		if record.IsSensitiveHeader(key) {
			value = record.Redacted
		}
		p.printHeaderLine(key, value, width)
	}
}

func (p *ConsolePrinter) printHeaderLine(key, value string, width int) {
	prefix := key + ": "
	prefixWidth := runewidth.StringWidth(prefix)
	available := width - prefixWidth
	if available < 20 {
		available = 20
	}

	wrapped := wrapText(value, available)
	p.colorScheme.HeaderKey.Fprint(p.out, prefix)
	p.colorScheme.HeaderValue.Fprintln(p.out, wrapped[0])

	indent := strings.Repeat(" ", prefixWidth)
	for _, line := range wrapped[1:] {
		fmt.Fprint(p.out, indent)
		p.colorScheme.HeaderValue.Fprintln(p.out, line)
	}
}

func (p *ConsolePrinter) printBody(body []byte, contentType string) {
	if len(body) == 0 {
		p.colorScheme.Meta.Fprintln(p.out, "[Empty Body]")
		return
	}
	if !utf8.Valid(body) {
		p.colorScheme.Notice.Fprintf(p.out, "[Binary Body: %s, %s. Use --raw to write it verbatim.]\n", contentType, humanize.Bytes(uint64(len(body))))
		return
	}

	formatted := p.formatter.Format(contentType, body)
	for _, notice := range formatted.Notices {
		p.colorScheme.Notice.Fprintln(p.out, notice)
	}
	for _, line := range strings.Split(strings.TrimRight(formatted.Text, "\n"), "\n") {
		p.colorScheme.BodyContent.Fprintln(p.out, strings.TrimRight(line, "\r"))
	}
}

func (p *ConsolePrinter) statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return p.colorScheme.Status5xx
	case code >= 400:
		return p.colorScheme.Status4xx
	case code >= 300:
		return p.colorScheme.Status3xx
	default:
		return p.colorScheme.Status2xx
	}
}

// getMethodColor gets the corresponding color based on HTTP method
func (p *ConsolePrinter) getMethodColor(method string) *color.Color {
	switch strings.ToUpper(method) {
	case "GET":
		return p.colorScheme.MethodGET
	case "POST":
		return p.colorScheme.MethodPOST
	case "PUT":
		return p.colorScheme.MethodPUT
	case "DELETE":
		return p.colorScheme.MethodDELETE
	default:
		return color.New(color.FgWhite, color.Bold)
	}
}
