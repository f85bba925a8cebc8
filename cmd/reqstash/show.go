package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/funnyzak/reqstash/internal/namespace"
	"github.com/funnyzak/reqstash/pkg/record"
)

var showCmd = &cobra.Command{
	Use:   "show NAMESPACE",
	Short: "Print a saved request",
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	},
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringP("request", "X", "GET", "HTTP method of the saved request")
	showCmd.Flags().String("format", "json", "Output format (json, yaml)")
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	method, _ := cmd.Flags().GetString("request")
	method, err = namespace.ParseMethod(method)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if format != "json" && format != "yaml" {
		return &record.ValidationError{Field: "format", Value: format, Reason: "must be json or yaml"}
	}

	ns := args[0]
	if err := namespace.Validate(ns); err != nil {
		return err
	}
	path := namespace.Resolve(a.store.Root(), ns, method)
	exists, err := a.store.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		printEmpty(fmt.Sprintf("No saved %s request for %s", method, ns))
		return nil
	}

	rec, err := a.store.Load(path)
	if err != nil {
		return err
	}

	var out []byte
	if format == "yaml" {
		out, err = encodeYAML(rec)
	} else {
		out, err = record.Encode(rec)
		out = append(out, '\n')
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

func encodeYAML(rec *record.Record) ([]byte, error) {
	clone := rec.Clone()
	clone.Data = yamlValue(clone.Data)
	return yaml.Marshal(clone)
}

// yamlValue replaces json.Number values with plain numbers so yaml.v3 does
// not quote them.
func yamlValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = yamlValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = yamlValue(item)
		}
		return out
	default:
		return v
	}
}
