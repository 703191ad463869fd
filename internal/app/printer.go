package app

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shubhamrasal/peekq/internal/browse"
	"github.com/shubhamrasal/peekq/internal/models"
)

// printer writes headless output as aligned text or one JSON object per line
type printer struct {
	w    io.Writer
	json bool
	enc  *json.Encoder
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, json: asJSON, enc: json.NewEncoder(w)}
}

func (p *printer) empty(view browse.View) error {
	if p.json {
		return nil
	}
	_, err := fmt.Fprintf(p.w, "no %s messages\n", view)
	return err
}

func (p *printer) page(view browse.View, page int, msgs []models.MessageSummary) error {
	if p.json {
		return p.records(view, page, msgs)
	}
	if _, err := fmt.Fprintf(p.w, "# %s page %d (%d messages)\n", view, page, len(msgs)); err != nil {
		return err
	}
	return p.table(msgs)
}

func (p *printer) messages(view browse.View, msgs []models.MessageSummary) error {
	if p.json {
		return p.records(view, 0, msgs)
	}
	for _, m := range msgs {
		if _, err := fmt.Fprintf(p.w, "%-11s %s\n", view, formatSummary(m, " ")); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) records(view browse.View, page int, msgs []models.MessageSummary) error {
	for _, m := range msgs {
		rec := messageRecord{
			View:          view.String(),
			Page:          page,
			Sequence:      m.SequenceNumber,
			EnqueuedTime:  m.EnqueuedTime,
			MessageID:     m.MessageID,
			Subject:       m.Subject,
			CorrelationID: m.CorrelationID,
		}
		if err := p.enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) table(msgs []models.MessageSummary) error {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tENQUEUED\tSUBJECT\tMESSAGE ID\tCORRELATION ID")
	for _, m := range msgs {
		fmt.Fprintln(tw, formatSummary(m, "\t"))
	}
	return tw.Flush()
}

func formatSummary(m models.MessageSummary, sep string) string {
	return fmt.Sprint(m.SequenceNumber) + sep +
		m.EnqueuedTime.Format(time.RFC3339) + sep +
		orDash(m.Subject) + sep +
		orDash(m.MessageID) + sep +
		orDash(m.CorrelationID)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
