package jobs

import (
	"context"
	"fmt"
	"time"

	"socialcal/backend/internal/events"
	"socialcal/backend/internal/mailer"
	"socialcal/backend/internal/metrics"
	"socialcal/backend/internal/models"
	"socialcal/backend/internal/notification"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReminderJob periodically delivers reminders whose fire time has passed.
type ReminderJob struct {
	db        *gorm.DB
	notifier  *notification.Service
	mailer    mailer.Mailer
	publisher events.Publisher
	log       *logrus.Logger
	interval  time.Duration
	now       func() time.Time

	ticker *time.Ticker
	done   chan struct{}
	exited chan struct{}
}

// NewReminderJob creates a job that runs every interval. mailer may be nil.
func NewReminderJob(db *gorm.DB, notifier *notification.Service, m mailer.Mailer, publisher events.Publisher, log *logrus.Logger, interval time.Duration) *ReminderJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderJob{
		db:        db,
		notifier:  notifier,
		mailer:    m,
		publisher: publisher,
		log:       log,
		interval:  interval,
		now:       time.Now,
	}
}

// Start begins the job in its own goroutine.
func (j *ReminderJob) Start() {
	j.ticker = time.NewTicker(j.interval)
	j.done = make(chan struct{})
	j.exited = make(chan struct{})
	j.log.WithField("interval", j.interval.String()).Info("reminder job started")

	go func() {
		defer close(j.exited)
		j.tick()
		for {
			select {
			case <-j.ticker.C:
				j.tick()
			case <-j.done:
				j.log.Info("reminder job stopped")
				return
			}
		}
	}()
}

// Stop halts the ticker and waits for a running pass to finish.
func (j *ReminderJob) Stop() {
	if j.ticker == nil {
		return
	}
	j.ticker.Stop()
	close(j.done)
	<-j.exited
	j.ticker = nil
}

func (j *ReminderJob) tick() {
	fired, err := j.RunOnce(context.Background())
	if err != nil {
		j.log.WithError(err).Error("reminder pass failed")
		return
	}
	if fired > 0 {
		j.log.WithField("fired", fired).Info("reminders delivered")
	}
}

// RunOnce delivers every due reminder and returns how many fired. A reminder is
// due when its item starts within its offset from now, it has not fired, and the
// item did not start more than one interval ago.
func (j *ReminderJob) RunOnce(ctx context.Context) (int, error) {
	now := j.now()
	cutoff := now.Add(-j.interval)

	var candidates []models.Reminder
	err := j.db.WithContext(ctx).
		Joins("JOIN calendar_items ON calendar_items.id = reminders.calendar_item_id AND calendar_items.deleted_at IS NULL").
		Where("reminders.fired_at IS NULL AND calendar_items.start IS NOT NULL AND calendar_items.start >= ?", cutoff).
		Preload("CalendarItem").Preload("Owner").
		Find(&candidates).Error
	if err != nil {
		return 0, fmt.Errorf("load reminders: %w", err)
	}

	fired := 0
	for _, r := range candidates {
		start := r.CalendarItem.Start
		if start == nil || start.Add(-r.Offset()).After(now) {
			continue
		}
		ok, err := j.fire(ctx, r, now)
		if err != nil {
			j.log.WithError(err).WithField("reminder", r.ID).Warn("failed to fire reminder")
			continue
		}
		if ok {
			fired++
		}
	}
	return fired, nil
}

// fire claims the reminder and stores its notification in one transaction. It
// returns false when another instance claimed it first.
func (j *ReminderJob) fire(ctx context.Context, r models.Reminder, now time.Time) (bool, error) {
	item := r.CalendarItem
	note := &models.Notification{
		UserID:   r.OwnerID,
		Message:  fmt.Sprintf("Reminder: %s starts at %s", titleOf(item), item.Start.Format(time.RFC1123)),
		Type:     models.NotificationReminder,
		Reminder: &models.ReminderNotification{ReminderID: r.ID},
	}

	claimed := false
	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := models.Reminder{ID: r.ID, TimeValue: r.TimeValue, TimeScale: r.TimeScale}
		res := tx.Model(&claim).Where("fired_at IS NULL").Update("fired_at", now)
		if res.Error != nil {
			return fmt.Errorf("claim reminder: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		claimed = true
		return j.notifier.Create(tx, note)
	})
	if err != nil || !claimed {
		return false, err
	}

	j.notifier.Push(*note)
	metrics.IncReminderFired()
	events.Emit(ctx, j.publisher, j.log, events.ReminderFired, r.OwnerID, map[string]uint{
		"reminder_id":      r.ID,
		"calendar_item_id": r.CalendarItemID,
	})

	if j.mailer != nil && r.Owner.Email != "" {
		text := fmt.Sprintf("Hello %s,\n\n%s.\n", r.Owner.FirstName, note.Message)
		if err := j.mailer.Send(r.Owner.Email, "Reminder: "+titleOf(item), text, ""); err != nil {
			j.log.WithError(err).WithField("reminder", r.ID).Warn("failed to email reminder")
		}
	}
	return true, nil
}

func titleOf(item models.CalendarItem) string {
	if item.Title == "" {
		return "your calendar item"
	}
	return item.Title
}
