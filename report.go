package warden

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
)

// ReportRow describes one binding as seen after the build.
type ReportRow struct {
	Key          Key
	Module       string
	Scope        Scope
	Implicit     bool
	Classified   bool
	Tier         Tier
	Via          Via
	Decision     Decision
	Materialized bool
	Reason       Reason
	Ordinal      uint64
}

func (i *Injector) Report() []ReportRow {
	var rows []ReportRow
	for b := range i.Bindings() {
		row := ReportRow{
			Key:      b.Key,
			Module:   b.Module,
			Scope:    b.Scope,
			Implicit: b.Implicit,
			Decision: i.Decision(b.Key),
		}
		if c, ok := i.Classification(b.Key); ok {
			row.Classified = true
			row.Tier = c.Tier
			row.Via = c.Via
		}
		if rec, ok := i.Record(b.Key); ok {
			row.Materialized = true
			row.Reason = rec.Reason
			row.Ordinal = rec.Ordinal
		}
		rows = append(rows, row)
	}
	return rows
}

// RenderReport writes the binding report as a table.
func (i *Injector) RenderReport(w io.Writer, title string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{"#", "Key", "Module", "Scope", "Tier", "Via", "Decision", "Materialized"})

	for _, r := range i.Report() {
		tier, via := "-", "-"
		if r.Classified {
			tier, via = strings.ToUpper(r.Tier.String()), r.Via.String()
		}
		module := r.Module
		if r.Implicit {
			module += " (implicit)"
		}
		state := "-"
		ordinal := ""
		if r.Materialized {
			state = strings.ToUpper(r.Reason.String())
			ordinal = strconv.FormatUint(r.Ordinal, 10)
		}
		t.AppendRow(table.Row{ordinal, r.Key, module, r.Scope, tier, via, strings.ToUpper(r.Decision.String()), state})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "", "total", len(i.Records())})
	t.Render()
}

// BindingReport renders the report to w and logs one debug entry per
// binding. A nil writer only logs.
func BindingReport(title string, w io.Writer) Action {
	return ActionFunc(
		"binding-report", func(_ context.Context, inj *Injector) error {
			if w != nil {
				inj.RenderReport(w, title)
			}

			for _, r := range inj.Report() {
				fields := []zap.Field{
					zap.String("key", string(r.Key)),
					zap.String("module", r.Module),
					zap.Stringer("scope", r.Scope),
					zap.Stringer("decision", r.Decision),
					zap.Bool("materialized", r.Materialized),
				}
				if r.Classified {
					fields = append(fields, zap.Stringer("tier", r.Tier), zap.Stringer("via", r.Via))
				}
				if r.Materialized {
					fields = append(fields, zap.Stringer("reason", r.Reason), zap.Uint64("ordinal", r.Ordinal))
				}
				inj.logger.Debug("binding", fields...)
			}
			return nil
		},
	)
}
