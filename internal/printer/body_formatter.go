package printer

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/url"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	nethtml "golang.org/x/net/html"

	"github.com/funnyzak/reqstash/internal/config"
	"github.com/funnyzak/reqstash/internal/logger"
)

type formattedBody struct {
	Text    string
	Notices []string
}

// bodyView renders one family of content types. render returning false
// hands the body to the next view.
type bodyView struct {
	name   string
	match  func(mediaType string, body []byte) bool
	render func(body []byte) (formattedBody, bool)
}

type bodyFormatter struct {
	cfg    *config.BodyViewConfig
	logger logger.Logger
	views  []bodyView
}

func newBodyFormatter(cfg *config.BodyViewConfig, log logger.Logger) *bodyFormatter {
	if cfg == nil {
		cfg = &config.BodyViewConfig{}
	}
	if log == nil {
		log = logger.Nop()
	}
	f := &bodyFormatter{cfg: cfg, logger: log}

	if cfg.Json.Enable {
		f.views = append(f.views, bodyView{name: "json", match: looksLikeJSON, render: f.renderJSON})
	}
	if cfg.Form.Enable {
		f.views = append(f.views, bodyView{
			name:   "form",
			match:  func(mt string, _ []byte) bool { return mt == "application/x-www-form-urlencoded" },
			render: renderForm,
		})
	}
	if cfg.XML.Enable {
		f.views = append(f.views, bodyView{
			name:   "xml",
			match:  func(mt string, _ []byte) bool { return strings.HasSuffix(mt, "xml") },
			render: f.markup(cfg.XML.Pretty, cfg.XML.StripControl, indentXML),
		})
	}
	if cfg.HTML.Enable {
		f.views = append(f.views, bodyView{
			name:   "html",
			match:  func(mt string, body []byte) bool { return strings.Contains(mt, "html") || looksLikeHTML(body) },
			render: f.markup(cfg.HTML.Pretty, cfg.HTML.StripControl, indentHTML),
		})
	}
	return f
}

// Format renders body according to its content type. A positive
// MaxPreviewBytes cuts the body first; zero shows it whole.
func (f *bodyFormatter) Format(contentType string, body []byte) formattedBody {
	if f == nil || len(body) == 0 {
		return formattedBody{}
	}

	var notices []string
	if limit := f.cfg.MaxPreviewBytes; limit > 0 && len(body) > limit {
		notices = append(notices, fmt.Sprintf("[Body truncated: showing %s of %s]",
			humanize.Bytes(uint64(limit)), humanize.Bytes(uint64(len(body)))))
		body = body[:limit]
	}

	out := formattedBody{Text: string(body)}
	if f.cfg.Enable {
		mediaType := normalizeMediaType(contentType)
		for _, view := range f.views {
			if !view.match(mediaType, body) {
				continue
			}
			if res, ok := view.render(body); ok {
				out = res
				break
			}
			f.logger.Debug("Body view declined", "view", view.name, "content_type", mediaType)
		}
	}
	out.Notices = append(notices, out.Notices...)
	return out
}

func (f *bodyFormatter) renderJSON(body []byte) (formattedBody, bool) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return formattedBody{}, false
	}
	opts := f.cfg.Json
	if !opts.Pretty {
		return formattedBody{Text: string(body)}, true
	}
	if opts.MaxIndentBytes > 0 && len(trimmed) > opts.MaxIndentBytes {
		return formattedBody{
			Text:    string(body),
			Notices: []string{fmt.Sprintf("[JSON larger than %s, shown without indentation]", humanize.Bytes(uint64(opts.MaxIndentBytes)))},
		}, true
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return formattedBody{}, false
	}
	return formattedBody{Text: buf.String()}, true
}

// renderForm lays out urlencoded pairs as a two column table sorted by key.
func renderForm(body []byte) (formattedBody, bool) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return formattedBody{}, false
	}
	if len(values) == 0 {
		return formattedBody{Text: string(body)}, true
	}

	keys := make([]string, 0, len(values))
	keyWidth := runewidth.StringWidth("Key")
	for k := range values {
		keys = append(keys, k)
		keyWidth = max(keyWidth, runewidth.StringWidth(k))
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Form data:\n%s │ Value\n", runewidth.FillRight("Key", keyWidth))
	fmt.Fprintf(&b, "%s─┼%s\n", strings.Repeat("─", keyWidth), strings.Repeat("─", 40))
	for _, k := range keys {
		fmt.Fprintf(&b, "%s │ %s\n", runewidth.FillRight(k, keyWidth), strings.Join(values[k], ", "))
	}
	return formattedBody{Text: b.String()}, true
}

// markup builds the render step shared by XML and HTML. A body the indenter
// cannot parse is still shown, untouched apart from control stripping.
func (f *bodyFormatter) markup(pretty, strip bool, indent func([]byte) (string, error)) func([]byte) (formattedBody, bool) {
	return func(body []byte) (formattedBody, bool) {
		if strip {
			body = stripControlBytes(body)
		}
		if !pretty {
			return formattedBody{Text: string(body)}, true
		}
		text, err := indent(body)
		if err != nil {
			f.logger.Debug("Markup indent failed", "error", err)
			return formattedBody{Text: string(body)}, true
		}
		return formattedBody{Text: text}, true
	}
}

func normalizeMediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return strings.ToLower(mediaType)
	}
	return strings.ToLower(contentType)
}

func looksLikeJSON(mediaType string, body []byte) bool {
	if strings.Contains(mediaType, "json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) < 2 {
		return false
	}
	switch string([]byte{trimmed[0], trimmed[len(trimmed)-1]}) {
	case "{}", "[]":
		return true
	}
	return false
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	return bytes.HasPrefix(head, []byte("<html")) || bytes.HasPrefix(head, []byte("<!doc"))
}

// stripControlBytes drops C0 control bytes except tab, newline and carriage return.
func stripControlBytes(b []byte) []byte {
	return bytes.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, b)
}

func indentXML(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		// Source whitespace would fight the encoder's own indentation
		if cd, ok := tok.(xml.CharData); ok && len(bytes.TrimSpace(cd)) == 0 {
			continue
		}
		if err := enc.EncodeToken(tok); err != nil {
			return "", err
		}
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func indentHTML(data []byte) (string, error) {
	doc, err := nethtml.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	w := &htmlIndenter{}
	w.walk(doc, 0)
	return w.String(), nil
}

// htmlIndenter prints one element, text run or comment per line, two spaces
// per nesting level.
type htmlIndenter struct {
	strings.Builder
}

func (w *htmlIndenter) line(depth int, s string) {
	w.WriteString(strings.Repeat("  ", depth))
	w.WriteString(s)
	w.WriteByte('\n')
}

func (w *htmlIndenter) walk(n *nethtml.Node, depth int) {
	switch n.Type {
	case nethtml.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c, depth)
		}
	case nethtml.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			w.line(depth, text)
		}
	case nethtml.CommentNode:
		w.line(depth, "<!--"+strings.TrimSpace(n.Data)+"-->")
	case nethtml.ElementNode:
		var open strings.Builder
		open.WriteString("<" + n.Data)
		for _, a := range n.Attr {
			fmt.Fprintf(&open, ` %s="%s"`, a.Key, html.EscapeString(a.Val))
		}
		if voidElements[strings.ToLower(n.Data)] {
			w.line(depth, open.String()+" />")
			return
		}
		w.line(depth, open.String()+">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c, depth+1)
		}
		w.line(depth, "</"+n.Data+">")
	}
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}
