package printer

import (
	"fmt"
	"io"
	"os"

	"github.com/funnyzak/reqstash/internal/logger"
)

// RawPrinter writes the response body byte for byte. Notices go to a
// separate writer so stdout carries nothing but the body.
type RawPrinter struct {
	logger logger.Logger
	out    io.Writer
	notice io.Writer
}

// NewRawPrinter writes bodies to out and notices to stderr.
func NewRawPrinter(log logger.Logger, out io.Writer) *RawPrinter {
	if out == nil {
		out = os.Stdout
	}
	return &RawPrinter{logger: log, out: out, notice: os.Stderr}
}

// PrintResponse implements Printer.
func (p *RawPrinter) PrintResponse(ex *Exchange) error {
	if ex == nil || len(ex.Body) == 0 {
		return nil
	}
	if _, err := p.out.Write(ex.Body); err != nil {
		p.logger.Error("Failed to write response body", "error", err)
		return err
	}
	return nil
}

// PrintNotice implements Printer.
func (p *RawPrinter) PrintNotice(msg string) error {
	_, err := fmt.Fprintln(p.notice, msg)
	return err
}
