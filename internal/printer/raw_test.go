package printer

import (
	"bytes"
	"testing"

	"github.com/funnyzak/reqstash/internal/config"
)

func TestRawPrinterWritesBodyVerbatim(t *testing.T) {
	out := &bytes.Buffer{}
	notices := &bytes.Buffer{}
	p := New(noopLogger{}, &config.OutputConfig{Mode: "console"}, Options{Raw: true, Out: out})
	raw, ok := p.(*RawPrinter)
	if !ok {
		t.Fatalf("expected raw printer, got %T", p)
	}
	raw.notice = notices

	body := "\xff\xfe binary \x00 and {\"json\": 1}"
	if err := p.PrintNotice("Saved GET svc"); err != nil {
		t.Fatalf("print notice failed: %v", err)
	}
	if err := p.PrintResponse(newExchange(200, "application/octet-stream", body)); err != nil {
		t.Fatalf("print response failed: %v", err)
	}

	if out.String() != body {
		t.Fatalf("body changed: %q", out.String())
	}
	if notices.String() != "Saved GET svc\n" {
		t.Fatalf("unexpected notices: %q", notices.String())
	}
}
