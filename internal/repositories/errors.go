package repositories

import "errors"

// Common repository errors
var (
	ErrInvalidOwner          = errors.New("invalid notification owner")
	ErrInvalidNotificationID = errors.New("invalid notification id")
	ErrDatabaseConnection    = errors.New("database connection error")
)
