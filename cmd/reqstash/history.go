package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/funnyzak/reqstash/internal/history"
	"github.com/funnyzak/reqstash/internal/printer"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List dispatched requests",
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.NoArgs(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	},
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print one recorded response",
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	},
	RunE: runHistoryShow,
}

func init() {
	flags := historyCmd.Flags()
	flags.Int("limit", 20, "Maximum number of entries")
	flags.Int("offset", 0, "Number of entries to skip")
	flags.StringP("method", "X", "", "Only entries with this method")
	flags.String("search", "", "Only entries whose URL, namespace or headers contain this text")
	flags.String("namespace", "", "Only entries under this namespace")

	historyCmd.AddCommand(historyShowCmd)
}

func openHistoryOrFail(a *app) (history.Store, error) {
	hist, err := history.New(&a.cfg.History, a.log)
	if errors.Is(err, history.ErrDisabled) {
		return nil, &configError{err: errors.New("history is disabled, set history.enable to true")}
	}
	return hist, err
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	hist, err := openHistoryOrFail(a)
	if err != nil {
		return err
	}
	defer hist.Close()

	opts := history.ListOptions{}
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.Offset, _ = cmd.Flags().GetInt("offset")
	opts.Method, _ = cmd.Flags().GetString("method")
	opts.Method = strings.ToUpper(opts.Method)
	opts.Search, _ = cmd.Flags().GetString("search")
	opts.Namespace, _ = cmd.Flags().GetString("namespace")

	entries, total, err := hist.List(opts)
	if err != nil {
		return err
	}

	if a.cfg.Output.Mode == "json" {
		return writeJSON(map[string]interface{}{
			"entries": entries,
			"total":   total,
		})
	}
	if len(entries) == 0 {
		printEmpty("No recorded requests")
		return nil
	}
	renderHistory(entries, total)
	return nil
}

func renderHistory(entries []*history.Entry, total int) {
	t := newTable()
	t.AppendHeader(tableHeader("ID", "TIME", "METHOD", "STATUS", "NAMESPACE", "URL", "DURATION", "SIZE"))
	for _, e := range entries {
		t.AppendRow([]interface{}{
			shortID(e.ID),
			humanize.Time(e.Timestamp),
			methodText(e.Method),
			statusText(e),
			e.Namespace,
			truncate(e.URL, 50),
			(time.Duration(e.DurationMs) * time.Millisecond).String(),
			humanize.Bytes(uint64(e.Size)),
		})
	}
	t.AppendFooter([]interface{}{fmt.Sprintf("%d of %d", len(entries), total)})
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusText(e *history.Entry) string {
	switch {
	case e.Error != "":
		return text.FgRed.Sprint("error")
	case e.StatusCode >= 500:
		return text.FgRed.Sprint(e.StatusCode)
	case e.StatusCode >= 400:
		return text.FgYellow.Sprint(e.StatusCode)
	default:
		return text.FgGreen.Sprint(e.StatusCode)
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	hist, err := openHistoryOrFail(a)
	if err != nil {
		return err
	}
	defer hist.Close()

	entry, err := findEntry(hist, args[0])
	if err != nil {
		return err
	}

	out := printer.New(a.log, &a.cfg.Output, printer.Options{IncludeHeaders: a.cfg.Output.IncludeHeaders})
	if entry.Error != "" {
		return out.PrintNotice(fmt.Sprintf("%s %s failed: %s", entry.Method, entry.URL, entry.Error))
	}
	return out.PrintResponse(&printer.Exchange{
		Namespace:  entry.Namespace,
		Method:     entry.Method,
		URL:        entry.URL,
		StatusCode: entry.StatusCode,
		Status:     fmt.Sprintf("%d %s", entry.StatusCode, http.StatusText(entry.StatusCode)),
		Headers:    responseHeaders(entry.ResponseBody),
		Body:       entry.ResponseBody,
		Duration:   time.Duration(entry.DurationMs) * time.Millisecond,
	})
}

// findEntry accepts a full ID or the short prefix shown by the listing.
func findEntry(hist history.Store, id string) (*history.Entry, error) {
	entry, err := hist.Get(id)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return entry, nil
	}

	const scan = 500
	entries, _, err := hist.List(history.ListOptions{Limit: scan})
	if err != nil {
		return nil, err
	}
	var match *history.Entry
	for _, e := range entries {
		if strings.HasPrefix(e.ID, id) {
			if match != nil {
				return nil, &usageError{err: fmt.Errorf("history id %q is ambiguous", id)}
			}
			match = e
		}
	}
	if match == nil {
		return nil, &usageError{err: fmt.Errorf("no history entry %q", id)}
	}
	return hist.Get(match.ID)
}

// responseHeaders guesses a content type for the stored body, since response
// headers are not kept in the history log.
func responseHeaders(body []byte) http.Header {
	h := http.Header{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		h.Set("Content-Type", "application/json")
		return h
	}
	if len(body) > 0 {
		h.Set("Content-Type", http.DetectContentType(body))
	}
	return h
}
