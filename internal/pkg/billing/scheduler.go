package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/cache"
	"github.com/bioping/bioping/internal/pkg/env"
	"github.com/bioping/bioping/internal/pkg/mail"
	"github.com/bioping/bioping/internal/pkg/metrics/counter"
)

const (
	renewalSweepLockKey = "billing:renewal_sweep_lock"
	sweepBatchSize      = 200
)

// Charger requests off-session renewal charges. Satisfied by *Gateway.
type Charger interface {
	ChargeRenewal(ctx context.Context, customerRef string, spec PlanSpec) error
}

// Scheduler owns every periodic billing task: the renewal sweep that finds
// accounts past their renewal timestamp and requests off-session charges,
// daily payment-reminder mail, and webhook audit-log pruning. It never writes
// credits; a renewal only completes when the charge's webhook event comes
// back through the reconciler.
type Scheduler struct {
	accounts repository.AccountRepository
	events   repository.WebhookEventRepository
	charger  Charger
	catalog  *Catalog

	interval     time.Duration
	reminderLead time.Duration
	auditHorizon time.Duration

	sweepTicker *time.Ticker
	cron        *cron.Cron
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool

	// Seams for tests.
	acquireLock   func(key string, ttl time.Duration) (bool, error)
	releaseLock   func(key string) error
	sendMail      func(to, subject, body string) error
	flushCounters func() error
	now           func() time.Time
}

// NewScheduler builds a scheduler with intervals taken from the environment.
func NewScheduler(accounts repository.AccountRepository, events repository.WebhookEventRepository, charger Charger, catalog *Catalog) *Scheduler {
	return &Scheduler{
		accounts:      accounts,
		events:        events,
		charger:       charger,
		catalog:       catalog,
		interval:      time.Duration(env.GetEnvInt("RENEWAL_SWEEP_INTERVAL_MINUTES", 60)) * time.Minute,
		reminderLead:  time.Duration(env.GetEnvInt("PAYMENT_REMINDER_LEAD_HOURS", 72)) * time.Hour,
		auditHorizon:  time.Duration(env.GetEnvInt("WEBHOOK_AUDIT_DAYS", 90)) * 24 * time.Hour,
		stopCh:        make(chan struct{}),
		acquireLock:   cache.AcquireLock,
		releaseLock:   cache.ReleaseLock,
		sendMail:      mail.SendMail,
		flushCounters: counter.FlushAll,
		now:           time.Now,
	}
}

// Start launches the sweep loop and the cron jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	// Recreate stop channel for each start cycle so the scheduler can be
	// restarted safely.
	s.stopCh = make(chan struct{})
	s.running = true
	log.Infof("[Billing Scheduler] Starting (sweep every %s)", s.interval)

	s.sweepTicker = time.NewTicker(s.interval)
	s.wg.Add(1)
	go s.sweepWorker()

	s.cron = cron.New()
	// Payment reminders each morning.
	s.cron.AddFunc("0 9 * * *", func() {
		if err := s.SendPaymentReminders(); err != nil {
			log.Errorf("[Billing Scheduler] reminder job failed: %v", err)
		}
	})
	// Prune old webhook audit rows nightly.
	s.cron.AddFunc("0 3 * * *", func() {
		if err := s.PruneWebhookEvents(); err != nil {
			log.Errorf("[Billing Scheduler] audit pruning failed: %v", err)
		}
	})
	// Flush buffered contact counters to MySQL.
	s.cron.AddFunc("*/5 * * * *", func() {
		if err := s.flushCounters(); err != nil {
			log.Errorf("[Billing Scheduler] counter flush failed: %v", err)
		}
	})
	s.cron.Start()

	log.Info("[Billing Scheduler] Started successfully")
}

// Stop stops all periodic work and waits for in-flight sweeps to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	log.Info("[Billing Scheduler] Stopping...")

	if s.sweepTicker != nil {
		s.sweepTicker.Stop()
	}
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	close(s.stopCh)
	s.running = false
	s.wg.Wait()

	log.Info("[Billing Scheduler] Stopped")
}

func (s *Scheduler) sweepWorker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.sweepTicker.C:
			if err := s.RunSweep(context.Background()); err != nil {
				log.Errorf("[Billing Scheduler] sweep failed: %v", err)
			}
		}
	}
}

// RunSweep performs one renewal sweep. A Redis lock guards re-entry so a
// slow sweep is skipped by the next tick rather than overlapped. Charge
// failures leave the account due; the next sweep retries them.
func (s *Scheduler) RunSweep(ctx context.Context) error {
	locked, err := s.acquireLock(renewalSweepLockKey, s.interval)
	if err != nil {
		return fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !locked {
		log.Info("[Billing Scheduler] previous sweep still running, skipping tick")
		return nil
	}
	defer func() {
		if err := s.releaseLock(renewalSweepLockKey); err != nil {
			log.Errorf("[Billing Scheduler] failed to release sweep lock: %v", err)
		}
	}()

	now := s.now().UTC()
	due, err := s.accounts.ListDueForRenewal(now, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("list due accounts: %w", err)
	}
	if len(due) == 0 {
		return nil
	}
	log.Infof("[Billing Scheduler] %d account(s) due for renewal", len(due))

	for i := range due {
		account := &due[i]

		spec, ok := s.catalog.ByID(account.Plan)
		if !ok {
			log.Warnf("[Billing Scheduler] account %d has recurring flag but unknown plan %q", account.ID, account.Plan)
			continue
		}
		if account.StripeCustomerID == "" {
			log.Warnf("[Billing Scheduler] account %d due for renewal but has no customer reference", account.ID)
			continue
		}

		if err := s.charger.ChargeRenewal(ctx, account.StripeCustomerID, spec); err != nil {
			// Account state stays untouched: still due, retried next tick.
			log.Errorf("[Billing Scheduler] charge request for account %d failed: %v", account.ID, err)
			continue
		}
		log.Infof("[Billing Scheduler] requested renewal charge for account %d (plan %s)", account.ID, spec.ID)
	}

	return nil
}

// SendPaymentReminders mails accounts whose renewal lands within the lead
// window.
func (s *Scheduler) SendPaymentReminders() error {
	now := s.now().UTC()
	upcoming, err := s.accounts.ListDueWithin(now, s.reminderLead)
	if err != nil {
		return err
	}

	for i := range upcoming {
		account := &upcoming[i]
		if account.NextRenewalAt == nil {
			continue
		}
		body := fmt.Sprintf(
			"Hi %s,<br><br>your BioPing %s plan renews on %s. No action is needed if your payment method is up to date.",
			account.Name, account.Plan, account.NextRenewalAt.Format("January 2, 2006"),
		)
		if err := s.sendMail(account.Email, "Your BioPing plan renews soon", body); err != nil {
			log.Errorf("[Billing Scheduler] reminder mail to account %d failed: %v", account.ID, err)
		}
	}
	return nil
}

// PruneWebhookEvents deletes processed audit rows past the retention horizon.
func (s *Scheduler) PruneWebhookEvents() error {
	cutoff := s.now().UTC().Add(-s.auditHorizon)
	deleted, err := s.events.DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Infof("[Billing Scheduler] pruned %d webhook event(s) older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return nil
}
