package navigator

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// ErrCancelled is returned by the terminal prompter on Ctrl+C or EOF.
var ErrCancelled = errors.New("cancelled by user")

// TerminalPrompter reads choices from the terminal with readline.
type TerminalPrompter struct {
	rl  *readline.Instance
	out io.Writer
}

// NewTerminalPrompter opens a readline instance on the process terminal.
// Close must be called when done.
func NewTerminalPrompter() (*TerminalPrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	return &TerminalPrompter{rl: rl, out: rl.Stdout()}, nil
}

// Close releases the terminal.
func (p *TerminalPrompter) Close() error {
	return p.rl.Close()
}

// Select prints numbered options and reads until a valid number is entered.
func (p *TerminalPrompter) Select(label string, options []string) (int, error) {
	fmt.Fprintln(p.out, color.New(color.Bold).Sprint(label))
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %s %s\n", color.CyanString("%2d)", i+1), opt)
	}

	p.rl.SetPrompt(fmt.Sprintf("Choose [1-%d]: ", len(options)))
	for {
		line, err := p.readLine()
		if err != nil {
			return -1, err
		}
		idx, ok := parseSelection(line, options)
		if ok {
			return idx, nil
		}
		fmt.Fprintln(p.out, color.YellowString("Please enter a number between 1 and %d or an option name", len(options)))
	}
}

// Confirm asks a yes/no question. An empty answer means no.
func (p *TerminalPrompter) Confirm(label string) (bool, error) {
	p.rl.SetPrompt(label + " [y/N]: ")
	for {
		line, err := p.readLine()
		if err != nil {
			return false, err
		}
		answer, ok := parseConfirm(line)
		if ok {
			return answer, nil
		}
		fmt.Fprintln(p.out, color.YellowString("Please answer y or n"))
	}
}

func (p *TerminalPrompter) readLine() (string, error) {
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrCancelled
	}
	if err != nil {
		return "", fmt.Errorf("readline error: %w", err)
	}
	return line, nil
}

// parseSelection accepts a 1-based index or an exact option name.
func parseSelection(input string, options []string) (int, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return -1, false
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1, true
		}
		return -1, false
	}
	for i, opt := range options {
		if opt == input {
			return i, true
		}
	}
	return -1, false
}

func parseConfirm(input string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, true
	case "", "n", "no":
		return false, true
	}
	return false, false
}
