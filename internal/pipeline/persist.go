package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/metrics"
	"github.com/sells-group/lead-radar/internal/model"
)

// LeadWriter is the subset of the lead store used to persist accepted leads.
type LeadWriter interface {
	LeadExists(ctx context.Context, userID, permalink string) (bool, error)
	// InsertLead returns false when a lead for the same user and permalink
	// already exists.
	InsertLead(ctx context.Context, lead *model.Lead) (bool, error)
}

// PersistReport accounts for every accepted candidate.
type PersistReport struct {
	Inserted   int             `json:"inserted"`
	Duplicates int             `json:"duplicates"`
	Failures   []model.Failure `json:"failures,omitempty"`
}

// Persist writes accepted candidates as new leads. Each candidate is checked
// for an existing lead first and inserted with insert-or-ignore semantics, so
// repeated runs never create a second lead for the same user and permalink.
// A failed write is recorded and does not stop the rest.
func Persist(ctx context.Context, leads LeadWriter, userID, productID string, accepted []model.ScoredCandidate, excerptChars int) PersistReport {
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("user_id", userID),
		zap.String("product_id", productID),
	)

	var rep PersistReport
	for _, sc := range accepted {
		if sc.Permalink == "" {
			rep.fail(sc.ID, eris.New("pipeline: candidate has no permalink"))
			continue
		}

		exists, err := leads.LeadExists(ctx, userID, sc.Permalink)
		if err != nil {
			rep.fail(sc.ID, eris.Wrap(err, "pipeline: check existing lead"))
			log.Warn("pipeline: lead existence check failed", zap.String("post_id", sc.ID), zap.Error(err))
			continue
		}
		if exists {
			rep.Duplicates++
			metrics.LeadWrites.WithLabelValues("duplicate").Inc()
			continue
		}

		lead := model.NewLead(userID, productID, sc, excerptChars)
		inserted, err := leads.InsertLead(ctx, &lead)
		if err != nil {
			rep.fail(sc.ID, eris.Wrap(err, "pipeline: insert lead"))
			log.Warn("pipeline: lead insert failed", zap.String("post_id", sc.ID), zap.Error(err))
			continue
		}
		if !inserted {
			rep.Duplicates++
			metrics.LeadWrites.WithLabelValues("duplicate").Inc()
			continue
		}
		rep.Inserted++
		metrics.LeadWrites.WithLabelValues("inserted").Inc()
	}

	log.Info("pipeline: leads persisted",
		zap.Int("inserted", rep.Inserted),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("failed", len(rep.Failures)),
	)
	return rep
}

func (r *PersistReport) fail(id string, err error) {
	metrics.LeadWrites.WithLabelValues("failed").Inc()
	r.Failures = append(r.Failures, model.Failure{ID: id, Error: err.Error()})
}
