package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/funnyzak/reqstash/internal/dispatcher"
	"github.com/funnyzak/reqstash/internal/history"
	"github.com/funnyzak/reqstash/internal/logger"
	"github.com/funnyzak/reqstash/internal/merge"
	"github.com/funnyzak/reqstash/internal/namespace"
	"github.com/funnyzak/reqstash/internal/store"
	"github.com/funnyzak/reqstash/pkg/record"
)

// NoticeSaveIgnored is reported when --save is given without a namespace.
const NoticeSaveIgnored = "--save is ignored because no namespace was given"

// Dispatcher sends an effective record.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec *record.Record) (*dispatcher.Result, error)
}

// Settings holds the configuration-driven behavior of the pipeline.
type Settings struct {
	StrictNamespaces bool
}

// Invocation is everything the user asked for in one run.
type Invocation struct {
	// Target is a namespace, a literal URL or empty.
	Target    string
	Inputs    merge.Inputs
	Save      bool
	Delete    bool
	DeleteAll bool
}

// Outcome describes what a run did.
type Outcome struct {
	Namespace string
	Path      string
	Effective *record.Record
	Saved     bool
	Deleted   bool
	Result    *dispatcher.Result
	Notices   []string
}

func (o *Outcome) notice(format string, args ...interface{}) {
	o.Notices = append(o.Notices, fmt.Sprintf(format, args...))
}

// Pipeline wires the store, the dispatcher and the optional history log.
type Pipeline struct {
	store      *store.Store
	dispatcher Dispatcher
	history    history.Store
	log        logger.Logger
	settings   Settings
}

// New creates a Pipeline. hist may be nil.
func New(st *store.Store, d Dispatcher, hist history.Store, log logger.Logger, settings Settings) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{store: st, dispatcher: d, history: hist, log: log, settings: settings}
}

// Run executes inv. Informational conditions end up in Outcome.Notices;
// anything fatal is returned as an error. The returned Outcome is non-nil
// even on error so callers can print notices gathered before the failure.
func (p *Pipeline) Run(ctx context.Context, inv Invocation) (*Outcome, error) {
	out := &Outcome{}
	in := inv.Inputs

	ns, err := p.classify(inv.Target, &in)
	if err != nil {
		return out, err
	}
	out.Namespace = ns

	method, err := namespace.ParseMethod(in.Method)
	if err != nil {
		return out, err
	}
	in.Method = method
	if ns != "" {
		out.Path = namespace.Resolve(p.store.Root(), ns, method)
	}

	if inv.DeleteAll || inv.Delete {
		return out, p.delete(inv, out)
	}

	stored := &record.Record{}
	if ns != "" {
		stored, err = p.store.Load(out.Path)
		if err != nil {
			return out, err
		}
	}

	effective, err := merge.Merge(stored, in)
	if err != nil {
		return out, err
	}
	out.Effective = effective

	if inv.Save {
		if ns == "" {
			out.notice(NoticeSaveIgnored)
		} else {
			if err := p.store.Save(effective, out.Path); err != nil {
				return out, err
			}
			out.Saved = true
			out.notice("Saved %s %s to %s", method, ns, out.Path)
		}
	}

	result, err := p.dispatcher.Dispatch(ctx, effective)
	var verr *record.ValidationError
	if !errors.As(err, &verr) {
		p.recordHistory(ns, effective, result, err)
	}
	if err != nil {
		return out, err
	}
	out.Result = result
	return out, nil
}

// classify returns the namespace for target, or "" when target is empty or
// a literal URL. A URL target fills in.URL unless --url was given.
func (p *Pipeline) classify(target string, in *merge.Inputs) (string, error) {
	target = strings.TrimSpace(target)
	switch {
	case target == "":
		return "", nil
	case namespace.IsURL(target):
		if in.URL == "" {
			in.URL = target
		}
		return "", nil
	}
	if p.settings.StrictNamespaces {
		if err := namespace.Validate(target); err != nil {
			return "", err
		}
	}
	return target, nil
}

func (p *Pipeline) delete(inv Invocation, out *Outcome) error {
	if out.Namespace == "" {
		out.notice("Nothing to delete: no namespace was given")
		return nil
	}

	if inv.DeleteAll {
		dir := namespace.Dir(p.store.Root(), out.Namespace)
		deleted, err := p.store.DeleteNamespace(dir)
		if err != nil {
			return err
		}
		out.Deleted = deleted
		if deleted {
			out.notice("Deleted namespace %s", out.Namespace)
		} else {
			out.notice("Nothing to delete: namespace %s does not exist", out.Namespace)
		}
		return nil
	}

	deleted, err := p.store.DeleteRecord(out.Path)
	if err != nil {
		return err
	}
	out.Deleted = deleted
	if deleted {
		out.notice("Deleted %s", out.Path)
	} else {
		out.notice("Nothing to delete: %s does not exist", out.Path)
	}
	return nil
}

func (p *Pipeline) recordHistory(ns string, rec *record.Record, result *dispatcher.Result, dispatchErr error) {
	if p.history == nil {
		return
	}
	entry := &history.Entry{
		Timestamp: time.Now(),
		Namespace: ns,
		Method:    rec.Method,
		URL:       rec.URL,
		Headers:   rec.Headers,
	}
	if result != nil {
		entry.RequestBody = result.RequestBody
		entry.StatusCode = result.StatusCode
		entry.ResponseBody = result.Body
		entry.DurationMs = result.Duration.Milliseconds()
	} else if rec.Data != nil {
		entry.RequestBody, _ = json.Marshal(rec.Data)
	}
	if dispatchErr != nil {
		entry.Error = dispatchErr.Error()
	}
	if _, err := p.history.Record(entry); err != nil {
		p.log.Warn("Failed to record history", "error", err)
	}
}
