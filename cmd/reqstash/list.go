package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/funnyzak/reqstash/internal/store"
	"github.com/funnyzak/reqstash/pkg/record"
)

var listCmd = &cobra.Command{
	Use:   "list [PREFIX]",
	Short: "List saved requests",
	Long: `List every saved request, optionally limited to one namespace and the
namespaces nested below it.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	},
	RunE: runList,
}

type listItem struct {
	Namespace string         `json:"namespace"`
	Method    string         `json:"method"`
	Path      string         `json:"path"`
	Record    *record.Record `json:"record"`
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	entries, err := a.store.Catalog(prefix)
	if err != nil {
		return err
	}
	a.log.Debug("Catalog loaded", "root", a.store.Root(), "prefix", prefix, "count", len(entries))

	if a.cfg.Output.Mode == "json" {
		items := make([]listItem, 0, len(entries))
		for _, e := range entries {
			items = append(items, listItem{Namespace: e.Namespace, Method: e.Method, Path: e.Path, Record: e.Record})
		}
		return writeJSON(items)
	}

	if len(entries) == 0 {
		printEmpty(fmt.Sprintf("No saved requests under %s", a.store.Root()))
		return nil
	}
	renderCatalog(entries)
	return nil
}

func renderCatalog(entries []store.Entry) {
	t := newTable()
	t.AppendHeader(tableHeader("NAMESPACE", "METHOD", "URL", "HEADERS", "BODY", "TIMEOUT"))
	for _, e := range entries {
		rec := e.Record
		t.AppendRow([]interface{}{
			e.Namespace,
			methodText(e.Method),
			truncate(rec.URL, 60),
			len(rec.Headers),
			bodySummary(rec.Data),
			timeoutSummary(rec.Timeout),
		})
	}
	t.AppendFooter([]interface{}{fmt.Sprintf("%d saved", len(entries))})
	t.Render()
}

func bodySummary(data any) string {
	if data == nil {
		return "-"
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(len(encoded)))
}

func timeoutSummary(timeout *int) string {
	if timeout == nil {
		return "-"
	}
	return fmt.Sprintf("%ds", *timeout)
}
