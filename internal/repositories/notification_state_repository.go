package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"portfolio-dashboard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type notificationStateRepository struct {
	db *gorm.DB
}

// NewNotificationStateRepository creates a gorm notification state repository
func NewNotificationStateRepository(db *gorm.DB) NotificationStateRepository {
	return &notificationStateRepository{db: db}
}

func validate(owner string, ids ...string) error {
	if strings.TrimSpace(owner) == "" {
		return ErrInvalidOwner
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidNotificationID
		}
	}
	return nil
}

func (r *notificationStateRepository) ListByOwner(ctx context.Context, owner string) ([]*models.NotificationState, error) {
	if err := validate(owner); err != nil {
		return nil, err
	}
	var states []*models.NotificationState
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("notification_id ASC").
		Find(&states).Error
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (r *notificationStateRepository) MarkRead(ctx context.Context, owner string, notificationIDs []string, at time.Time) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	if err := validate(owner, notificationIDs...); err != nil {
		return err
	}

	states := make([]models.NotificationState, len(notificationIDs))
	for i, id := range notificationIDs {
		readAt := at
		states[i] = models.NotificationState{
			Owner:          owner,
			NotificationID: id,
			Read:           true,
			ReadAt:         &readAt,
			CreatedAt:      at,
			UpdatedAt:      at,
		}
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner"}, {Name: "notification_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"read":       true,
			"read_at":    gorm.Expr("COALESCE(notification_states.read_at, ?)", at),
			"updated_at": at,
		}),
	}).Create(&states).Error
}

func (r *notificationStateRepository) Dismiss(ctx context.Context, owner, notificationID string, at time.Time) error {
	if err := validate(owner, notificationID); err != nil {
		return err
	}

	state := models.NotificationState{
		Owner:          owner,
		NotificationID: notificationID,
		Dismissed:      true,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner"}, {Name: "notification_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"dismissed":  true,
			"updated_at": at,
		}),
	}).Create(&state).Error
}

func (r *notificationStateRepository) Touch(ctx context.Context, owner string, notificationIDs []string, at time.Time) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	if err := validate(owner, notificationIDs...); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.NotificationState{}).
		Where("owner = ? AND notification_id IN ?", owner, notificationIDs).
		Update("updated_at", at).Error
}

func (r *notificationStateRepository) DeleteByOwner(ctx context.Context, owner string) error {
	if err := validate(owner); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("owner = ?", owner).Delete(&models.NotificationState{}).Error
}

func (r *notificationStateRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.NotificationState{})
	return result.RowsAffected, result.Error
}

// memoryNotificationStateRepository keeps state for the lifetime of the process
type memoryNotificationStateRepository struct {
	mu     sync.RWMutex
	states map[string]map[string]*models.NotificationState
}

// NewMemoryNotificationStateRepository creates an in-memory repository
func NewMemoryNotificationStateRepository() NotificationStateRepository {
	return &memoryNotificationStateRepository{states: make(map[string]map[string]*models.NotificationState)}
}

func (r *memoryNotificationStateRepository) upsert(owner, id string, at time.Time, apply func(*models.NotificationState)) {
	byID, ok := r.states[owner]
	if !ok {
		byID = make(map[string]*models.NotificationState)
		r.states[owner] = byID
	}
	state, ok := byID[id]
	if !ok {
		state = &models.NotificationState{Owner: owner, NotificationID: id, CreatedAt: at}
		byID[id] = state
	}
	apply(state)
	state.UpdatedAt = at
}

func (r *memoryNotificationStateRepository) ListByOwner(_ context.Context, owner string) ([]*models.NotificationState, error) {
	if err := validate(owner); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.NotificationState, 0, len(r.states[owner]))
	for _, s := range r.states[owner] {
		copied := *s
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NotificationID < out[j].NotificationID })
	return out, nil
}

func (r *memoryNotificationStateRepository) MarkRead(_ context.Context, owner string, notificationIDs []string, at time.Time) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	if err := validate(owner, notificationIDs...); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range notificationIDs {
		r.upsert(owner, id, at, func(s *models.NotificationState) {
			s.Read = true
			if s.ReadAt == nil {
				readAt := at
				s.ReadAt = &readAt
			}
		})
	}
	return nil
}

func (r *memoryNotificationStateRepository) Dismiss(_ context.Context, owner, notificationID string, at time.Time) error {
	if err := validate(owner, notificationID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsert(owner, notificationID, at, func(s *models.NotificationState) {
		s.Dismissed = true
	})
	return nil
}

func (r *memoryNotificationStateRepository) Touch(_ context.Context, owner string, notificationIDs []string, at time.Time) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	if err := validate(owner, notificationIDs...); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range notificationIDs {
		if s, ok := r.states[owner][id]; ok {
			s.UpdatedAt = at
		}
	}
	return nil
}

func (r *memoryNotificationStateRepository) DeleteByOwner(_ context.Context, owner string) error {
	if err := validate(owner); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, owner)
	return nil
}

func (r *memoryNotificationStateRepository) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for owner, byID := range r.states {
		for id, s := range byID {
			if s.UpdatedAt.Before(cutoff) {
				delete(byID, id)
				removed++
			}
		}
		if len(byID) == 0 {
			delete(r.states, owner)
		}
	}
	return removed, nil
}
