package sim

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bizsim/internal/model"
	"github.com/sells-group/bizsim/internal/trend"
	"github.com/sells-group/bizsim/pkg/agents"
)

// AdvanceInput is the player's side of a month: which month is being
// reported, the financial results their client computed, any agent outputs
// the client already holds, and the decisions they made.
type AdvanceInput struct {
	Month           int                `json:"month"`
	Year            int                `json:"year"`
	Financials      model.Financials   `json:"financials"`
	Agents          model.AgentOutputs `json:"agentOutputs"`
	PlayerDecisions json.RawMessage    `json:"playerDecisions,omitempty"`
}

// AdvanceResult is a completed month: the saved snapshot and the session
// with its pointer on the month that was just saved.
type AdvanceResult struct {
	State   *model.MonthlyState `json:"state"`
	Session *model.Session      `json:"session"`
}

// Orchestrator runs the advance-month pipeline: narrative generation fans
// out across the agent service and the trend service, then the snapshot
// and the session pointer commit together.
type Orchestrator struct {
	store  Store
	agents agents.Client
	trends *trend.Service
}

// NewOrchestrator creates an orchestrator. agents and trends may each be
// nil; the corresponding outputs are then simply absent from the month.
func NewOrchestrator(st Store, agentsClient agents.Client, trendSvc *trend.Service) *Orchestrator {
	return &Orchestrator{store: st, agents: agentsClient, trends: trendSvc}
}

// AdvanceMonth saves the caller's month and leaves the session pointer on
// it. Which month to report is entirely the caller's call: months may
// arrive out of order, and saving the same month twice replaces the
// earlier snapshot with the later values. Each narrative task is
// independent: a failed one logs and leaves the caller's value for that
// output in place, it never blocks the month from committing.
func (o *Orchestrator) AdvanceMonth(ctx context.Context, sessionID string, in AdvanceInput) (*AdvanceResult, error) {
	if in.Month < 1 || in.Month > 12 {
		return nil, ErrInvalidMonth
	}

	sess, err := o.store.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snap := agents.Snapshot{
		BusinessType: sess.BusinessType,
		Location:     formatLocation(sess.Location),
		CensusData:   in.Agents.MarketContext,
		CurrentMonth: in.Month,
		CurrentYear:  in.Year,
	}

	var eventsData, trendsData, supplierData json.RawMessage
	g, gctx := errgroup.WithContext(ctx)

	if o.agents != nil {
		g.Go(func() error {
			out, err := o.agents.GenerateEvents(gctx, snap)
			if err != nil {
				zap.L().Warn("sim: events generation failed",
					zap.String("session_id", sessionID), zap.Error(err))
				return nil //nolint:nilerr
			}
			eventsData = out
			return nil
		})

		g.Go(func() error {
			out, err := o.agents.AnalyzeSuppliers(gctx, snap)
			if err != nil {
				zap.L().Warn("sim: supplier analysis failed",
					zap.String("session_id", sessionID), zap.Error(err))
				return nil //nolint:nilerr
			}
			supplierData = out
			return nil
		})
	}

	if o.trends != nil {
		g.Go(func() error {
			summary := o.trends.Fetch(gctx, sess.BusinessType, formatLocation(sess.Location))
			summaryJSON, err := json.Marshal(summary)
			if err != nil {
				zap.L().Warn("sim: marshal trend summary failed", zap.Error(err))
				return nil //nolint:nilerr
			}
			trendsData = summaryJSON

			// Layer the agent's reading on top when it cooperates; the raw
			// summary already stands on its own.
			if o.agents != nil {
				if analyzed, err := o.agents.AnalyzeTrends(gctx, snap, summaryJSON); err != nil {
					zap.L().Warn("sim: trend analysis failed",
						zap.String("session_id", sessionID), zap.Error(err))
				} else {
					trendsData = analyzed
				}
			}
			return nil
		})
	}

	_ = g.Wait() // tasks never return errors

	// The caller's record is the baseline; generated outputs replace their
	// slots only when the generation succeeded.
	outputs := in.Agents
	if eventsData != nil {
		outputs.EventsData = eventsData
	}
	if trendsData != nil {
		outputs.TrendsData = trendsData
	}
	if supplierData != nil {
		outputs.SupplierData = supplierData
	}

	state := &model.MonthlyState{
		SessionID:       sess.ID,
		Month:           in.Month,
		Year:            in.Year,
		Financials:      in.Financials,
		Agents:          outputs,
		PlayerDecisions: in.PlayerDecisions,
	}

	if err := o.store.SaveMonthlyState(ctx, state); err != nil {
		return nil, err
	}
	sess.CurrentMonth, sess.CurrentYear = state.Month, state.Year

	zap.L().Info("sim: month advanced",
		zap.String("session_id", sess.ID),
		zap.Int("saved_month", state.Month),
		zap.Int("saved_year", state.Year),
		zap.Bool("events", eventsData != nil),
		zap.Bool("trends", trendsData != nil),
		zap.Bool("suppliers", supplierData != nil))
	return &AdvanceResult{State: state, Session: sess}, nil
}

func formatLocation(loc model.Location) string {
	switch {
	case loc.Neighborhood != "" && loc.County != "":
		return fmt.Sprintf("%s, %s", loc.Neighborhood, loc.County)
	case loc.Neighborhood != "":
		return loc.Neighborhood
	default:
		return loc.County
	}
}
