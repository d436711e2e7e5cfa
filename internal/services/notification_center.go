package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"portfolio-dashboard/internal/aggregation"
	"portfolio-dashboard/internal/models"
	"portfolio-dashboard/internal/repositories"

	"github.com/rs/zerolog"
)

// notificationResources are the collections notifications are derived from
var notificationResources = []Resource{ResourceTrades, ResourceDeposits, ResourceWithdrawals, ResourceIdentity}

// stateTouchInterval is how old the updated_at of a still visible state row
// may get before a refresh bumps it
const stateTouchInterval = time.Hour

// Caller identifies who a request is made for. Owner keys the per-token
// query cache, Subject is the user id carried by the token and may be empty.
type Caller struct {
	Owner   string
	Subject string
}

// NotificationFeed is the merged notification list of one user
type NotificationFeed struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	Warnings      []Warning             `json:"warnings,omitempty"`
	// New holds the notifications that appeared since the previous refresh
	New []models.Notification `json:"-"`
}

// NotificationCenter merges freshly synthesised notifications with the
// stored read/dismissed flags. Ids seen for the first time are published.
// Flags and the seen set belong to the user, so they survive a new login.
type NotificationCenter struct {
	dashboard   *DashboardService
	synthesizer *aggregation.NotificationSynthesizer
	states      repositories.NotificationStateRepository
	publisher   EventPublisher
	limit       int
	logger      zerolog.Logger

	mu    sync.Mutex
	seen  map[string]map[string]struct{}
	users map[string]string
}

// NewNotificationCenter creates a notification center. publisher may be nil.
func NewNotificationCenter(dashboard *DashboardService, states repositories.NotificationStateRepository, publisher EventPublisher, limit int, logger zerolog.Logger) *NotificationCenter {
	if limit <= 0 {
		limit = aggregation.DefaultNotificationLimit
	}
	return &NotificationCenter{
		dashboard: dashboard,
		// dismissed entries are filtered before truncation, so synthesise everything
		synthesizer: aggregation.NewNotificationSynthesizer(aggregation.DefaultNotificationRules, math.MaxInt32),
		states:      states,
		publisher:   publisher,
		limit:       limit,
		logger:      logger.With().Str("component", "notification_center").Logger(),
		seen:        make(map[string]map[string]struct{}),
		users:       make(map[string]string),
	}
}

// StateOwner returns the key flags of caller are stored under: the token
// subject, or the profile user id when the token carries none. Token claims
// are not verified locally, so the profile is loaded first to let the
// backend accept the token. The result is remembered per token.
func (c *NotificationCenter) StateOwner(ctx context.Context, caller Caller, reader AccountReader) (string, error) {
	c.mu.Lock()
	user, ok := c.users[caller.Owner]
	c.mu.Unlock()
	if ok {
		return user, nil
	}

	batch, err := c.dashboard.Load(ctx, caller.Owner, reader, ResourceProfile)
	if err != nil {
		return "", err
	}
	switch {
	case caller.Subject != "":
		user = caller.Subject
	case batch.Snapshot.Profile != nil && batch.Snapshot.Profile.UserID != "":
		user = batch.Snapshot.Profile.UserID.String()
	default:
		return "", ErrUnknownUser
	}

	c.mu.Lock()
	c.users[caller.Owner] = user
	c.mu.Unlock()
	return user, nil
}

// List loads the current notifications of caller, merged with local state
func (c *NotificationCenter) List(ctx context.Context, caller Caller, reader AccountReader) (*NotificationFeed, error) {
	user, err := c.StateOwner(ctx, caller, reader)
	if err != nil {
		return nil, err
	}
	batch, err := c.dashboard.Load(ctx, caller.Owner, reader, notificationResources...)
	if err != nil {
		return nil, err
	}
	all := c.synthesizer.Synthesize(batch.Snapshot)

	states, err := c.states.ListByOwner(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification state: %w", err)
	}
	c.touch(ctx, user, all, states)

	feed := Merge(all, states, c.limit)
	feed.Warnings = batch.Warnings
	feed.New = c.markSeen(user, all, feed.Notifications)

	if len(feed.New) > 0 && c.publisher != nil {
		if err := c.publisher.PublishNotifications(ctx, user, feed.New); err != nil {
			c.logger.Warn().Err(err).Str("user", user).Int("count", len(feed.New)).Msg("failed to publish notifications")
		}
	}
	return feed, nil
}

// touch keeps the state rows of still synthesised notifications out of
// reach of Prune
func (c *NotificationCenter) touch(ctx context.Context, user string, all []models.Notification, states []*models.NotificationState) {
	now := c.dashboard.Now()
	stale := make(map[string]bool, len(states))
	for _, s := range states {
		if now.Sub(s.UpdatedAt) >= stateTouchInterval {
			stale[s.NotificationID] = true
		}
	}
	if len(stale) == 0 {
		return
	}

	var ids []string
	for _, n := range all {
		if stale[n.ID] {
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := c.states.Touch(ctx, user, ids, now); err != nil {
		c.logger.Warn().Err(err).Str("user", user).Int("count", len(ids)).Msg("failed to touch notification state")
	}
}

// Merge applies stored flags to synthesised notifications: dismissed ids
// are dropped, read ids keep their flag, unknown ids stay unread. The
// result is truncated to limit.
func Merge(all []models.Notification, states []*models.NotificationState, limit int) *NotificationFeed {
	byID := make(map[string]*models.NotificationState, len(states))
	for _, s := range states {
		byID[s.NotificationID] = s
	}

	visible := make([]models.Notification, 0, limit)
	for _, n := range all {
		state := byID[n.ID]
		if state != nil && state.Dismissed {
			continue
		}
		n.Read = state != nil && state.Read
		visible = append(visible, n)
		if len(visible) == limit {
			break
		}
	}

	return &NotificationFeed{Notifications: visible, UnreadCount: UnreadCount(visible)}
}

// UnreadCount counts notifications not yet read
func UnreadCount(list []models.Notification) int {
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}

// markSeen records every synthesised id and returns the visible ones that
// were not known before. The first refresh of a user only sets the
// baseline.
func (c *NotificationCenter) markSeen(user string, all, visible []models.Notification) []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous, known := c.seen[user]
	current := make(map[string]struct{}, len(all))
	for _, n := range all {
		current[n.ID] = struct{}{}
	}
	c.seen[user] = current

	if !known {
		return nil
	}
	var fresh []models.Notification
	for _, n := range visible {
		if _, ok := previous[n.ID]; !ok {
			fresh = append(fresh, n)
		}
	}
	return fresh
}

// MarkRead flags one notification as read
func (c *NotificationCenter) MarkRead(ctx context.Context, caller Caller, reader AccountReader, notificationID string) error {
	user, err := c.StateOwner(ctx, caller, reader)
	if err != nil {
		return err
	}
	if err := c.states.MarkRead(ctx, user, []string{notificationID}, c.dashboard.Now()); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flags every currently visible notification as read and
// returns how many were changed
func (c *NotificationCenter) MarkAllRead(ctx context.Context, caller Caller, reader AccountReader) (int, error) {
	feed, err := c.List(ctx, caller, reader)
	if err != nil {
		return 0, err
	}
	user, err := c.StateOwner(ctx, caller, reader)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, n := range feed.Notifications {
		if !n.Read {
			ids = append(ids, n.ID)
		}
	}
	if err := c.states.MarkRead(ctx, user, ids, c.dashboard.Now()); err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return len(ids), nil
}

// Dismiss hides a notification for good
func (c *NotificationCenter) Dismiss(ctx context.Context, caller Caller, reader AccountReader, notificationID string) error {
	user, err := c.StateOwner(ctx, caller, reader)
	if err != nil {
		return err
	}
	if err := c.states.Dismiss(ctx, user, notificationID, c.dashboard.Now()); err != nil {
		return fmt.Errorf("failed to dismiss notification: %w", err)
	}
	return nil
}

// Reset clears every stored flag of the user, bringing dismissed
// notifications back as unread
func (c *NotificationCenter) Reset(ctx context.Context, caller Caller, reader AccountReader) error {
	user, err := c.StateOwner(ctx, caller, reader)
	if err != nil {
		return err
	}
	if err := c.states.DeleteByOwner(ctx, user); err != nil {
		return fmt.Errorf("failed to reset notification state: %w", err)
	}
	return nil
}

// Forget drops what is kept in memory for a session: its resolved user and
// that user's seen set
func (c *NotificationCenter) Forget(caller Caller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	user := caller.Subject
	if user == "" {
		user = c.users[caller.Owner]
	}
	delete(c.users, caller.Owner)
	if user != "" {
		delete(c.seen, user)
	}
}

// Prune deletes state rows not refreshed since before cutoff. Rows of
// notifications that are still synthesised are bumped on every List, so
// only flags of notifications that dropped out of the feed expire.
func (c *NotificationCenter) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	removed, err := c.states.PruneBefore(ctx, c.dashboard.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune notification state: %w", err)
	}
	if removed > 0 {
		c.logger.Info().Int64("removed", removed).Msg("pruned notification state")
	}
	return removed, nil
}
