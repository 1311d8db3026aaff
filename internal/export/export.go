// Package export pushes stored leads into the outreach tools: a spreadsheet,
// a Notion review database or Salesforce.
package export

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/model"
)

// Sink writes a batch of leads to one destination.
type Sink interface {
	Name() string
	Export(ctx context.Context, leads []model.Lead) (*Report, error)
}

// Report accounts for every lead handed to a sink. A lead is either created,
// updated in place, or listed in Failures.
type Report struct {
	Sink     string          `json:"sink"`
	Total    int             `json:"total"`
	Created  int             `json:"created"`
	Updated  int             `json:"updated"`
	Failures []model.Failure `json:"failures,omitempty"`
}

func (r *Report) fail(id string, err error) {
	r.Failures = append(r.Failures, model.Failure{ID: id, Error: err.Error()})
}

// Run exports leads to sink and logs the outcome.
func Run(ctx context.Context, sink Sink, leads []model.Lead) (*Report, error) {
	log := zap.L().With(zap.String("component", "export"), zap.String("sink", sink.Name()))

	rep, err := sink.Export(ctx, leads)
	if err != nil {
		log.Error("export: sink failed", zap.Int("leads", len(leads)), zap.Error(err))
		return rep, err
	}
	log.Info("export: complete",
		zap.Int("total", rep.Total),
		zap.Int("created", rep.Created),
		zap.Int("updated", rep.Updated),
		zap.Int("failed", len(rep.Failures)),
	)
	return rep, nil
}

// leadKey identifies a lead in failure lists.
func leadKey(l model.Lead) string {
	if l.ID != "" {
		return l.ID
	}
	return l.Permalink
}
