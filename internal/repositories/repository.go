package repositories

import (
	"gorm.io/gorm"
)

// Repositories contains all repository instances
type Repositories struct {
	NotificationState NotificationStateRepository
}

// NewRepositories creates the gorm backed repositories. A nil db selects the
// in-memory implementations.
func NewRepositories(db *gorm.DB) *Repositories {
	if db == nil {
		return &Repositories{
			NotificationState: NewMemoryNotificationStateRepository(),
		}
	}
	return &Repositories{
		NotificationState: NewNotificationStateRepository(db),
	}
}
