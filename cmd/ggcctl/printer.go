package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ggc/backend/internal/domain/warehouse"
)

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, json: asJSON}
}

// emit writes v as indented JSON in json mode, otherwise calls text
func (p *printer) emit(v any, text func(w io.Writer)) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func writeStats(w io.Writer, s warehouse.Stats) {
	fmt.Fprintf(w, "partners\t%d\n", s.Partners)
	fmt.Fprintf(w, "simple products\t%d\n", s.SimpleProducts)
	fmt.Fprintf(w, "aggregate products\t%d\n", s.AggregateProducts)
	fmt.Fprintf(w, "batches\t%d\n", s.Batches)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
