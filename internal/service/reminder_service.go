package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peakform/coachdesk-api/internal/dto"
	"github.com/peakform/coachdesk-api/internal/models"
	"github.com/peakform/coachdesk-api/internal/repository"
	"github.com/peakform/coachdesk-api/pkg/config"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
)

type lessonLister interface {
	ListStartingBetween(ctx context.Context, from, to time.Time, clientID string) ([]models.Lesson, error)
}

type userDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type reminderMarkerStore interface {
	Create(ctx context.Context, record *models.ReminderRecord) error
	ExistsForDay(ctx context.Context, lessonID, sentOn string) (bool, error)
	ExistsSince(ctx context.Context, lessonID string, cutoff time.Time) (bool, error)
}

type reminderChatStore interface {
	GetOrCreateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)
	CreateMessage(ctx context.Context, message *models.ChatMessage) error
	TouchConversation(ctx context.Context, conversationID string, at time.Time) error
}

type emailDispatcher interface {
	EnqueueEmail(to, subject, htmlBody string) error
}

type sweepObserver interface {
	ObserveSweep(report *dto.DispatchReport)
}

// ReminderService selects lessons inside the reminder window, filters
// duplicates, and dispatches reminders to the email and in-app sinks. The
// periodic trigger and the on-demand test path both call Sweep and may run
// concurrently; dedup is per lesson, so overlapping runs are safe.
type ReminderService struct {
	lessons     lessonLister
	users       userDirectory
	reminders   reminderMarkerStore
	chats       reminderChatStore
	marker      SentMarker
	email       emailDispatcher
	metrics     sweepObserver
	loc         *time.Location
	concurrency int
	logger      *zap.Logger
}

// ReminderServiceConfig tunes the sweep engine.
type ReminderServiceConfig struct {
	Timezone    string
	Concurrency int
}

// NewReminderService wires the dispatcher dependencies.
func NewReminderService(
	lessons lessonLister,
	users userDirectory,
	reminders reminderMarkerStore,
	chats reminderChatStore,
	marker SentMarker,
	email emailDispatcher,
	metrics sweepObserver,
	cfg ReminderServiceConfig,
	logger *zap.Logger,
) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		loc = time.UTC
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if marker == nil {
		marker = NewMemorySentMarker()
	}
	return &ReminderService{
		lessons:     lessons,
		users:       users,
		reminders:   reminders,
		chats:       chats,
		marker:      marker,
		email:       email,
		metrics:     metrics,
		loc:         loc,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// Sweep runs one reminder pass for the window derived from now and mode.
// targetClientID narrows candidates to a single client (the on-demand debug
// path); dedup and dispatch logic are identical either way. A caller
// deadline on ctx stops new candidates from starting; in-flight candidates
// finish and unstarted ones are reported skipped[deadline].
func (s *ReminderService) Sweep(ctx context.Context, now time.Time, mode string, targetClientID string) (*dto.DispatchReport, error) {
	window, err := ComputeWindow(now, mode, s.loc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sweep mode")
	}

	candidates, err := s.lessons.ListStartingBetween(ctx, window.Start, window.End, targetClientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load candidate lessons")
	}

	started := time.Now()
	report := dto.NewDispatchReport(mode, now)
	report.Candidates = len(candidates)

	// In-flight candidates run on a detached context so a sweep deadline
	// never leaves one half-processed.
	workCtx := context.WithoutCancel(ctx)

	outcomes := make(chan dto.DispatchOutcome, len(candidates))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for _, lesson := range candidates {
		if ctx.Err() != nil {
			outcomes <- dto.DispatchOutcome{
				LessonID: lesson.ID,
				Result:   dto.DispatchResultSkipped,
				Reason:   dto.SkipReasonDeadline,
			}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(lesson models.Lesson) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes <- s.processCandidate(workCtx, now, mode, lesson)
		}(lesson)
	}

	wg.Wait()
	close(outcomes)
	for outcome := range outcomes {
		report.Add(outcome)
	}
	report.Duration = time.Since(started)

	if s.metrics != nil {
		s.metrics.ObserveSweep(report)
	}
	s.logger.Sugar().Infow("reminder sweep finished",
		"mode", mode, "candidates", report.Candidates, "sent", report.Sent,
		"failed", report.Failed, "skipped", report.Skipped, "duration", report.Duration)
	return report, nil
}

// processCandidate dispatches one lesson reminder. Failures stay local to
// the candidate; the batch keeps going.
func (s *ReminderService) processCandidate(ctx context.Context, now time.Time, mode string, lesson models.Lesson) dto.DispatchOutcome {
	outcome := dto.DispatchOutcome{LessonID: lesson.ID}
	fail := func(err error) dto.DispatchOutcome {
		s.logger.Sugar().Warnw("reminder dispatch failed", "lesson_id", lesson.ID, "error", err)
		outcome.Result = dto.DispatchResultFailed
		outcome.Reason = err.Error()
		return outcome
	}
	skip := func(reason string) dto.DispatchOutcome {
		outcome.Result = dto.DispatchResultSkipped
		outcome.Reason = reason
		return outcome
	}

	coach, err := s.users.GetByID(ctx, lesson.CoachID)
	if err != nil {
		return fail(fmt.Errorf("load coach: %w", err))
	}
	if coach.ReminderOptOut {
		return skip(dto.SkipReasonCoachDisabled)
	}

	client, err := s.users.GetByID(ctx, lesson.ClientID)
	if err != nil {
		return fail(fmt.Errorf("load client: %w", err))
	}
	if client.AccountID == nil {
		return skip(dto.SkipReasonNoRecipient)
	}

	key := dedupKey(lesson.ID, lesson.StartsAt, s.loc)
	duplicate, err := s.isDuplicate(ctx, now, mode, lesson, key)
	if err != nil {
		return fail(err)
	}
	if duplicate {
		return skip(dto.SkipReasonDuplicate)
	}

	conversation, err := s.chats.GetOrCreateConversation(ctx, coach.ID, client.ID)
	if err != nil {
		return fail(fmt.Errorf("resolve conversation: %w", err))
	}

	subject, body := RenderReminderContent(lesson, client.FullName, coach.FullName, s.loc)

	// Email is best effort; the in-app message is the canonical record.
	if s.email != nil && client.Email != nil {
		if err := s.email.EnqueueEmail(*client.Email, subject, body); err != nil {
			s.logger.Sugar().Warnw("email enqueue failed", "lesson_id", lesson.ID, "error", err)
		}
	}

	message := &models.ChatMessage{
		ConversationID: conversation.ID,
		SenderID:       coach.ID,
		Body:           body,
		Payload:        models.ReminderPayload(lesson.ID),
		RequiresAck:    true,
	}
	if err := s.chats.CreateMessage(ctx, message); err != nil {
		return fail(fmt.Errorf("create reminder message: %w", err))
	}

	record := &models.ReminderRecord{
		LessonID: lesson.ID,
		SentOn:   dedupDay(now, s.loc),
		Status:   models.ReminderStatusSent,
		SentAt:   now,
	}
	if err := s.reminders.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrReminderExists) {
			// Lost the race to a concurrent invoker. The durable constraint
			// is the authority: report the candidate as a duplicate.
			s.logger.Sugar().Infow("reminder record raced", "lesson_id", lesson.ID)
			return skip(dto.SkipReasonDuplicate)
		}
		return fail(fmt.Errorf("persist reminder record: %w", err))
	}

	if err := s.marker.MarkSent(ctx, key); err != nil {
		s.logger.Sugar().Warnw("sent-marker update failed", "key", key, "error", err)
	}
	if err := s.chats.TouchConversation(ctx, conversation.ID, now); err != nil {
		s.logger.Sugar().Warnw("conversation touch failed", "conversation_id", conversation.ID, "error", err)
	}

	outcome.Result = dto.DispatchResultSent
	return outcome
}

// isDuplicate runs the two-tier dedup check: the in-process marker first,
// then the durable record store. A durable hit backfills the marker.
func (s *ReminderService) isDuplicate(ctx context.Context, now time.Time, mode string, lesson models.Lesson, key string) (bool, error) {
	seen, err := s.marker.Seen(ctx, key)
	if err != nil {
		s.logger.Sugar().Warnw("sent-marker lookup failed", "key", key, "error", err)
	} else if seen {
		return true, nil
	}

	var exists bool
	switch mode {
	case config.ReminderModeCalendar:
		exists, err = s.reminders.ExistsForDay(ctx, lesson.ID, dedupDay(now, s.loc))
	default:
		exists, err = s.reminders.ExistsSince(ctx, lesson.ID, lesson.StartsAt.Add(-25*time.Hour))
	}
	if err != nil {
		return false, fmt.Errorf("durable dedup check: %w", err)
	}
	if exists {
		if markErr := s.marker.MarkSent(ctx, key); markErr != nil {
			s.logger.Sugar().Warnw("sent-marker backfill failed", "key", key, "error", markErr)
		}
		return true, nil
	}
	return false, nil
}

// RenderReminderContent builds the reminder subject and body. Pure function
// of its inputs so dispatch tests stay deterministic.
func RenderReminderContent(lesson models.Lesson, clientName, coachName string, loc *time.Location) (subject, body string) {
	if loc == nil {
		loc = time.UTC
	}
	local := lesson.StartsAt.In(loc)
	subject = fmt.Sprintf("Reminder: session with %s on %s", coachName, local.Format("Mon, 2 Jan"))
	body = fmt.Sprintf(
		"Hi %s, this is a reminder that your session with %s is scheduled for %s at %s (%s). Please confirm.",
		clientName, coachName,
		local.Format("Monday, 2 January 2006"),
		local.Format("15:04"),
		local.Format("MST"),
	)
	return subject, body
}
