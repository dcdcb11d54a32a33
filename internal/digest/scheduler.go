package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hitoq/hitoq/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Period is the window each digest covers, ending at the tick.
const Period = 24 * time.Hour

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule reports whether expr is a usable 5-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("digest: schedule %q: %w", expr, err)
	}
	return nil
}

// NextRun returns the first fire time of expr after now.
func NextRun(expr string, now time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("digest: schedule %q: %w", expr, err)
	}
	return sched.Next(now), nil
}

// Poster delivers a formatted digest to one chat platform.
type Poster interface {
	Name() string
	Post(ctx context.Context, msg Message) error
}

// Publish posts msg through every poster. A failing poster does not stop
// the others; all failures are returned joined.
func Publish(ctx context.Context, posters []Poster, msg Message, log zerolog.Logger) error {
	var errs []error
	for _, p := range posters {
		if err := p.Post(ctx, msg); err != nil {
			metrics.DigestsPosted.WithLabelValues(p.Name(), "error").Inc()
			log.Error().Err(err).Str("platform", p.Name()).Msg("digest post failed")
			errs = append(errs, fmt.Errorf("digest: %s: %w", p.Name(), err))
			continue
		}
		metrics.DigestsPosted.WithLabelValues(p.Name(), "ok").Inc()
		log.Info().Str("platform", p.Name()).Msg("digest posted")
	}
	return errors.Join(errs...)
}

// Scheduler builds and publishes a digest on a cron schedule.
type Scheduler struct {
	db       *gorm.DB
	posters  []Poster
	schedule string
	log      zerolog.Logger
	now      func() time.Time
}

// SchedulerOpts holds parameters for NewScheduler.
type SchedulerOpts struct {
	DB       *gorm.DB
	Posters  []Poster
	Schedule string
	Log      zerolog.Logger
}

// NewScheduler validates the schedule and returns a Scheduler.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("digest: db is required")
	}
	if err := ValidateSchedule(opts.Schedule); err != nil {
		return nil, err
	}
	return &Scheduler{
		db:       opts.DB,
		posters:  opts.Posters,
		schedule: opts.Schedule,
		log:      opts.Log,
		now:      time.Now,
	}, nil
}

// RunOnce builds the digest for the period ending now and publishes it.
// Quiet periods are skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (*Report, error) {
	until := s.now().UTC()
	report, err := BuildReport(s.db.WithContext(ctx), until.Add(-Period), until)
	if err != nil {
		return nil, err
	}
	if report.Empty() {
		s.log.Debug().Msg("digest skipped: no activity")
		return report, nil
	}
	return report, Publish(ctx, s.posters, Format(report), s.log)
}

// Run fires RunOnce on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(cronParser), cron.WithLocation(time.UTC))
	_, err := c.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error().Err(err).Msg("digest run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("digest: schedule %q: %w", s.schedule, err)
	}

	if next, err := NextRun(s.schedule, s.now()); err == nil {
		s.log.Info().Time("next", next).Int("posters", len(s.posters)).Msg("digest scheduler started")
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
