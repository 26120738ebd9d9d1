package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bizsim/internal/model"
	"github.com/sells-group/bizsim/internal/resilience"
	"github.com/sells-group/bizsim/pkg/censusgeo"
)

// AnalysisWriter persists completed area analyses. The store satisfies it.
type AnalysisWriter interface {
	SaveAreaAnalysis(ctx context.Context, analysis *model.AreaAnalysis) error
}

// PersistenceError reports that an analysis was built but could not be
// written to the history. The analysis data inside the wrapped call is
// sound; only its persistence failed.
type PersistenceError struct {
	AnalysisID string
	Err        error
}

func (e *PersistenceError) Error() string {
	return "profile: persist analysis " + e.AnalysisID + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Analyzer resolves a coordinate to its tract and assembles the area
// analysis: the standard profile, plus the detailed enrichment when the
// secondary source can deliver it.
type Analyzer struct {
	resolver censusgeo.Client
	standard Source
	detailed Source
	writer   AnalysisWriter
	retry    resilience.RetryConfig
}

// NewAnalyzer creates an analyzer. detailed may be nil when no enrichment
// source is configured; writer may be nil to skip persistence.
func NewAnalyzer(resolver censusgeo.Client, standard, detailed Source, writer AnalysisWriter) *Analyzer {
	return &Analyzer{
		resolver: resolver,
		standard: standard,
		detailed: detailed,
		writer:   writer,
		retry:    resilience.DefaultRetryConfig(),
	}
}

// Analyze runs the full pipeline for one coordinate. The standard profile
// is required: its failure fails the analysis. The detailed enrichment is
// best effort and its failure only logs. Transient upstream errors are
// retried with backoff. Each completed analysis is appended to the
// analysis history; a write failure there comes back as a
// *PersistenceError so callers can tell a lost history row from a failed
// analysis.
func (a *Analyzer) Analyze(ctx context.Context, lat, lon float64) (*model.AreaAnalysis, error) {
	geo, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*model.GeoIdentifier, error) {
		return a.resolver.Resolve(ctx, lat, lon)
	})
	if err != nil {
		return nil, eris.Wrap(err, "profile: resolve coordinate")
	}

	analysis := &model.AreaAnalysis{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Latitude:  lat,
		Longitude: lon,
		Geo:       *geo,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	g.Go(func() error {
		p, err := resilience.DoVal(gctx, a.retry, func(ctx context.Context) (*model.DemographicProfile, error) {
			return a.standard.Profile(ctx, *geo)
		})
		if err != nil {
			return err
		}
		analysis.Profile = p
		return nil
	})

	if a.detailed != nil {
		g.Go(func() error {
			p, err := a.detailed.Profile(gctx, *geo)
			if err != nil {
				zap.L().Warn("profile: detailed enrichment unavailable",
					zap.String("tract", geo.TractKey()),
					zap.Error(err))
				return nil //nolint:nilerr
			}
			analysis.Detailed = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "profile: build analysis")
	}

	if analysis.Profile.AreaName != nil {
		analysis.AreaName = analysis.Profile.AreaName
	}

	if a.writer != nil {
		if err := a.writer.SaveAreaAnalysis(ctx, analysis); err != nil {
			zap.L().Error("profile: persist analysis failed",
				zap.String("analysis_id", analysis.ID),
				zap.Error(err))
			return nil, &PersistenceError{AnalysisID: analysis.ID, Err: err}
		}
	}

	zap.L().Info("profile: analysis complete",
		zap.String("analysis_id", analysis.ID),
		zap.String("tract", geo.TractKey()),
		zap.Bool("detailed", analysis.Detailed != nil))
	return analysis, nil
}
