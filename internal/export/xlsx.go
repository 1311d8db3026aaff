package export

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-radar/internal/model"
)

// SheetName is the worksheet the spreadsheet sink writes.
const SheetName = "Leads"

// Columns is the spreadsheet header row.
var Columns = []string{
	"Title", "Community", "Author", "Relevance", "Quality", "Scoring",
	"Status", "Permalink", "Posted", "Reasoning", "Suggested Reply", "Excerpt",
}

// XLSXSink writes leads to a new spreadsheet file, replacing any existing one.
type XLSXSink struct {
	Path string
}

// Name implements Sink.
func (s *XLSXSink) Name() string { return "xlsx" }

// Export implements Sink. Every lead becomes one row after the header.
func (s *XLSXSink) Export(ctx context.Context, leads []model.Lead) (*Report, error) {
	rep := &Report{Sink: s.Name(), Total: len(leads)}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return rep, eris.Wrap(err, "export: add sheet")
	}
	addRow(sheet, Columns)

	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return rep, eris.Wrap(err, "export: xlsx cancelled")
		}
		addRow(sheet, leadRow(l))
		rep.Created++
	}

	if err := f.Save(s.Path); err != nil {
		rep.Created = 0
		return rep, eris.Wrapf(err, "export: save %s", s.Path)
	}
	return rep, nil
}

func leadRow(l model.Lead) []string {
	posted := ""
	if !l.PostedAt.IsZero() {
		posted = l.PostedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		l.Title,
		l.Community,
		l.Author,
		strconv.Itoa(l.RelevanceScore),
		strconv.Itoa(l.QualityScore),
		string(l.ScoringSource),
		string(l.Status),
		l.Permalink,
		posted,
		l.Reasoning,
		l.SuggestedReply,
		l.Excerpt,
	}
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
