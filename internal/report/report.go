// Package report builds the recurring household estimate that the server
// publishes on a schedule.
package report

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/config"
	"github.com/bher20/slabbiller/internal/estimate"
	"github.com/bher20/slabbiller/internal/usage"
)

// JobName labels the report in logs and job metrics.
const JobName = "household_report"

type publisher interface {
	Publish(ctx context.Context, est *estimate.Estimate) error
}

type alerter interface {
	Notify(ctx context.Context, est *estimate.Estimate) (bool, error)
}

// Reporter computes the configured household estimate and hands it to the
// publisher and alerter.
type Reporter struct {
	svc   *estimate.Service
	req   estimate.Request
	pub   publisher
	alert alerter
	log   *zap.Logger
}

// New parses the configured usage once so a bad entry fails at startup.
func New(cfg config.ReportConfig, svc *estimate.Service, pub publisher, alert alerter, log *zap.Logger) (*Reporter, error) {
	req, err := Request(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{svc: svc, req: req, pub: pub, alert: alert, log: log}, nil
}

// Request turns report config into an estimate request. With no usage
// entries the reference household profile is used.
func Request(cfg config.ReportConfig) (estimate.Request, error) {
	req := estimate.Request{
		Tariff:         cfg.Tariff,
		DefaultProfile: cfg.DefaultProfile || len(cfg.Usage) == 0,
	}
	for _, raw := range cfg.Usage {
		entry, err := usage.ParseEntry(raw)
		if err != nil {
			return estimate.Request{}, fmt.Errorf("report usage %q: %w", raw, err)
		}
		req.Usage = append(req.Usage, entry)
	}
	return req, nil
}

// Run computes one estimate, then publishes it and checks the alert
// threshold. Publish and alert errors are both returned.
func (r *Reporter) Run(ctx context.Context) error {
	est, err := r.svc.Estimate(ctx, r.req)
	if err != nil {
		return fmt.Errorf("computing report: %w", err)
	}
	r.log.Info("report computed",
		zap.String("id", est.ID),
		zap.Float64("monthly_units", est.MonthlyUnits),
		zap.Float64("total_cost", est.TotalCost),
	)

	var errs []error
	if r.pub != nil {
		if err := r.pub.Publish(ctx, est); err != nil {
			errs = append(errs, fmt.Errorf("publishing report: %w", err))
		}
	}
	if r.alert != nil {
		if _, err := r.alert.Notify(ctx, est); err != nil {
			errs = append(errs, fmt.Errorf("alerting: %w", err))
		}
	}
	return errors.Join(errs...)
}
