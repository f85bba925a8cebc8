package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/funnyzak/reqstash/internal/dispatcher"
	"github.com/funnyzak/reqstash/internal/merge"
	"github.com/funnyzak/reqstash/internal/namespace"
	"github.com/funnyzak/reqstash/internal/navigator"
	"github.com/funnyzak/reqstash/internal/pipeline"
	"github.com/funnyzak/reqstash/internal/printer"
	"github.com/funnyzak/reqstash/pkg/record"
)

func runRequest(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	inv, err := buildInvocation(cmd.Flags(), args, a.cfg.Dispatch.Timeout)
	if err != nil {
		return err
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	if inv.Target == "" && interactive {
		ns, err := chooseNamespace(a)
		if err != nil {
			return err
		}
		inv.Target = ns
	}

	if inv.DeleteAll {
		yes, _ := cmd.Flags().GetBool("yes")
		proceed, err := confirmDeleteAll(inv.Target, yes)
		if err != nil {
			return err
		}
		if !proceed {
			fmt.Fprintln(os.Stderr, "Aborted, nothing deleted")
			return nil
		}
	}

	query, _ := cmd.Flags().GetString("query")
	raw, _ := cmd.Flags().GetBool("raw")
	out := printer.New(a.log, &a.cfg.Output, printer.Options{
		IncludeHeaders: a.cfg.Output.IncludeHeaders,
		Query:          query,
		Raw:            raw,
	})

	disp := a.newDispatcher()
	defer disp.Close()

	hist := a.openHistory()
	if hist != nil {
		defer hist.Close()
	}

	var d pipeline.Dispatcher = disp
	if a.cfg.Output.Spinner && a.cfg.Output.Mode == "console" && isTerminal(os.Stderr) {
		d = &spinnerDispatcher{inner: disp}
	}

	p := pipeline.New(a.store, d, hist, a.log, pipeline.Settings{
		StrictNamespaces: a.cfg.Storage.StrictNamespaces,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcome, runErr := p.Run(ctx, inv)
	for _, n := range outcome.Notices {
		if err := out.PrintNotice(n); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if outcome.Result == nil {
		return nil
	}

	return out.PrintResponse(&printer.Exchange{
		Namespace:  outcome.Namespace,
		Method:     outcome.Effective.Method,
		URL:        outcome.Effective.URL,
		StatusCode: outcome.Result.StatusCode,
		Status:     outcome.Result.Status,
		Headers:    outcome.Result.Headers,
		Body:       outcome.Result.Body,
		Duration:   outcome.Result.Duration,
	})
}

// buildInvocation turns parsed flags into a pipeline invocation. Body flags
// are only passed on when given so an empty string still counts as a body.
func buildInvocation(flags *pflag.FlagSet, args []string, defaultTimeout int) (pipeline.Invocation, error) {
	var inv pipeline.Invocation
	if len(args) > 0 {
		inv.Target = strings.TrimSpace(args[0])
	}

	in := merge.Inputs{}
	in.Method, _ = flags.GetString("request")
	in.URL, _ = flags.GetString("url")
	in.Headers, _ = flags.GetStringArray("header")

	for name, dst := range map[string]**string{
		"data":  &in.Data,
		"value": &in.Value,
		"json":  &in.JSON,
	} {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*dst = &v
		}
	}

	timeout := defaultTimeout
	if flags.Changed("timeout") {
		timeout, _ = flags.GetInt("timeout")
		if timeout <= 0 {
			return inv, &record.ValidationError{Field: "timeout", Value: fmt.Sprint(timeout), Reason: "must be a positive number of seconds"}
		}
	}
	if timeout > 0 {
		in.Timeout = &timeout
	}

	inv.Inputs = in
	inv.Save, _ = flags.GetBool("save")
	inv.Delete, _ = flags.GetBool("delete")
	inv.DeleteAll, _ = flags.GetBool("delete-all")
	return inv, nil
}

func chooseNamespace(a *app) (string, error) {
	prompter, err := navigator.NewTerminalPrompter()
	if err != nil {
		return "", &navigator.AbortedError{Err: err}
	}
	defer prompter.Close()

	return navigator.New(a.store.Root(), prompter, a.log).Navigate()
}

// confirmDeleteAll asks before removing a whole namespace subtree. Without a
// terminal the caller must pass --yes.
func confirmDeleteAll(target string, yes bool) (bool, error) {
	if yes || target == "" || namespace.IsURL(target) {
		return true, nil
	}
	if !isTerminal(os.Stdin) {
		return false, &usageError{err: errors.New("--delete-all needs --yes when stdin is not a terminal")}
	}

	prompter, err := navigator.NewTerminalPrompter()
	if err != nil {
		return false, err
	}
	defer prompter.Close()

	ok, err := prompter.Confirm(fmt.Sprintf("Delete namespace %s and everything below it?", target))
	if errors.Is(err, navigator.ErrCancelled) {
		return false, nil
	}
	return ok, err
}

// spinnerDispatcher shows a spinner on stderr while a request is in flight.
type spinnerDispatcher struct {
	inner pipeline.Dispatcher
}

func (s *spinnerDispatcher) Dispatch(ctx context.Context, rec *record.Record) (*dispatcher.Result, error) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = fmt.Sprintf(" %s %s", rec.Method, rec.URL)
	sp.Start()
	defer sp.Stop()
	return s.inner.Dispatch(ctx, rec)
}
