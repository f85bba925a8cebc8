package printer

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"unicode/utf8"

	"github.com/funnyzak/reqstash/internal/logger"
)

// JSONPrinter writes one JSON object per line.
type JSONPrinter struct {
	encoder *json.Encoder
	logger  logger.Logger
	out     io.Writer
	query   string
}

// NewJSONPrinter creates a JSON line printer on stdout.
func NewJSONPrinter(log logger.Logger, query string) *JSONPrinter {
	p := &JSONPrinter{logger: log, query: query}
	p.SetOutput(os.Stdout)
	return p
}

// SetOutput replaces the destination writer.
func (p *JSONPrinter) SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	p.out = w
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	p.encoder = encoder
}

type jsonResponseEnvelope struct {
	Type       string          `json:"type"`
	Namespace  string          `json:"namespace,omitempty"`
	Method     string          `json:"method"`
	URL        string          `json:"url"`
	StatusCode int             `json:"status_code"`
	Status     string          `json:"status"`
	Headers    http.Header     `json:"headers,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	Size       int             `json:"size"`
	Body       string          `json:"body,omitempty"`
	BodyJSON   json.RawMessage `json:"body_json,omitempty"`
	BodyBase64 string          `json:"body_base64,omitempty"`
	Query      string          `json:"query,omitempty"`
}

type jsonNoticeEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PrintResponse encodes ex as a "response" line. JSON bodies are embedded
// as body_json, other text as body and anything else as body_base64.
func (p *JSONPrinter) PrintResponse(ex *Exchange) error {
	if ex == nil {
		return nil
	}
	body := ex.Body
	isJSON := json.Valid(body)
	if p.query != "" {
		narrowed, narrowedJSON, err := applyQuery(ex.Body, p.query)
		if err != nil {
			return err
		}
		body, isJSON = narrowed, narrowedJSON || json.Valid(narrowed)
	}

	env := jsonResponseEnvelope{
		Type:       "response",
		Namespace:  ex.Namespace,
		Method:     ex.Method,
		URL:        ex.URL,
		StatusCode: ex.StatusCode,
		Status:     ex.Status,
		Headers:    ex.Headers,
		DurationMs: ex.Duration.Milliseconds(),
		Size:       len(ex.Body),
		Query:      p.query,
	}
	switch {
	case len(body) == 0:
	case isJSON:
		env.BodyJSON = json.RawMessage(body)
	case utf8.Valid(body):
		env.Body = string(body)
	default:
		env.BodyBase64 = base64.StdEncoding.EncodeToString(body)
	}
	return p.encode(env)
}

// PrintNotice encodes msg as a "notice" line.
func (p *JSONPrinter) PrintNotice(msg string) error {
	return p.encode(jsonNoticeEnvelope{Type: "notice", Message: msg})
}

func (p *JSONPrinter) encode(v interface{}) error {
	if err := p.encoder.Encode(v); err != nil {
		if p.logger != nil {
			p.logger.Error("Failed to encode JSON output", "error", err)
		}
		return err
	}
	return nil
}
