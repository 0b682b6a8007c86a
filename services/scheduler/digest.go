// Package scheduler runs the periodic jobs of the app.
package scheduler

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/user"
)

// Scheduler sends the pending-review digest to school admins on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	gradeSvc grade.ServiceInterface
	usrSvc   user.ServiceInterface
	mailSvc  core.EmailService
	logger   core.Logger
}

// New returns a Scheduler running the digest on schedule, a standard 5-field cron expression
// (e.g. "0 7 * * 1-5" for weekdays at 7am). An empty schedule disables the digest.
func New(schedule string, gradeSvc grade.ServiceInterface, usrSvc user.ServiceInterface, mailSvc core.EmailService, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		gradeSvc: gradeSvc,
		usrSvc:   usrSvc,
		mailSvc:  mailSvc,
		logger:   logger,
	}

	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		logger.Info("pending digest disabled (no schedule)")
		return s, nil
	}
	if _, err := s.cron.AddFunc(schedule, s.runDigest); err != nil {
		return nil, errors.Wrapf(err, "invalid digest schedule %q", schedule)
	}
	logger.Info(fmt.Sprintf("pending digest scheduled (cron: %s)", schedule))
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the scheduler and waits for a running job to complete, or ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runDigest() {
	if err := s.SendDigest(context.Background()); err != nil {
		s.logger.Error(fmt.Sprintf("sending pending digest: %v", err), err)
	}
}

// SendDigest emails every active admin of each school the number of grades waiting for their review, per class.
// Schools without pending grades are skipped.
func (s *Scheduler) SendDigest(ctx context.Context) error {
	counts, err := s.gradeSvc.PendingCounts(ctx)
	if err != nil {
		return err
	}

	// counts are sorted by school
	for start := 0; start < len(counts); {
		end := start
		total := 0
		for end < len(counts) && counts[end].SchoolID == counts[start].SchoolID {
			total += counts[end].Count
			end++
		}
		if err = s.notifyAdmins(ctx, counts[start].SchoolID, total, counts[start:end]); err != nil {
			return err
		}
		start = end
	}
	return nil
}

func (s *Scheduler) notifyAdmins(ctx context.Context, schoolID string, total int, classes []grade.PendingCount) error {
	admins, err := s.usrSvc.QueryAdmins(ctx, schoolID)
	if err != nil {
		return errors.Wrapf(err, "querying admins of school %s", schoolID)
	}

	messages := make([]*core.EmailMessage, 0, len(admins))
	for _, admin := range admins {
		if admin.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: admin.Name, Address: admin.Email}},
			Subject:      fmt.Sprintf("%d grade(s) waiting for review", total),
			TemplateName: "pending_digest",
			TemplateData: map[string]interface{}{
				"AdminName": admin.Name,
				"Total":     total,
				"Classes":   classes,
			},
		})
	}
	if len(messages) > 0 {
		s.mailSvc.SendMessages(messages...)
	}
	return nil
}
