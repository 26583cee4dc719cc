package metrics

import (
	"context"
	"strings"
	"time"

	"go-salesops/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// digestMetrics are the headline KPIs the daily digest logs per account.
var digestMetrics = []string{
	"total_appointments",
	"total_dials",
	"cash_collected",
	"roi",
}

// DigestJob periodically executes a fixed set of headline metrics for the
// configured accounts and logs the results. Purely an observability aid;
// nothing is persisted or cached.
type DigestJob struct {
	engine   *Engine
	accounts []string
	schedule string
	cron     *cron.Cron
	log      *zap.Logger
}

func NewDigestJob(engine *Engine, cfg *config.Config, log *zap.Logger) *DigestJob {
	var accounts []string
	for _, id := range strings.Split(cfg.DigestAccounts, ",") {
		if id = strings.TrimSpace(id); id != "" {
			accounts = append(accounts, id)
		}
	}
	return &DigestJob{
		engine:   engine,
		accounts: accounts,
		schedule: cfg.DigestSchedule,
		log:      log,
	}
}

// Start registers the cron entry. A missing schedule or empty account
// list disables the job.
func (j *DigestJob) Start() error {
	if j.schedule == "" || len(j.accounts) == 0 {
		j.log.Info("metrics digest disabled")
		return nil
	}

	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, j.runOnce); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info("metrics digest scheduled",
		zap.String("schedule", j.schedule),
		zap.Int("accounts", len(j.accounts)),
	)
	return nil
}

func (j *DigestJob) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

func (j *DigestJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	end := time.Now()
	start := end.AddDate(0, 0, -6)

	for _, accountID := range j.accounts {
		filters := MetricFilters{
			AccountID: accountID,
			DateRange: DateRange{
				Start: start.Format(isoDate),
				End:   end.Format(isoDate),
			},
		}
		for _, name := range digestMetrics {
			resp, err := j.engine.Execute(ctx, MetricRequest{MetricName: name, Filters: filters})
			if err != nil {
				j.log.Warn("digest metric failed",
					zap.String("account", accountID),
					zap.String("metric", name),
					zap.Error(err),
				)
				continue
			}
			value := 0.0
			if resp.Result.Total != nil {
				value = resp.Result.Total.Value
			}
			j.log.Info("digest metric",
				zap.String("account", accountID),
				zap.String("metric", name),
				zap.Float64("value", value),
			)
		}
	}
}
