package services

import (
	"errors"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/repository"
)

// partnerNameFallback labels rows from users who never set a display name
const partnerNameFallback = "Partner"

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

func requireGroup(user *models.User) (string, error) {
	if user == nil || !user.InGroup() {
		return "", apperr.ErrNotInGroup
	}
	return user.Group(), nil
}

func authorName(user *models.User) string {
	if user.DisplayName == "" {
		return partnerNameFallback
	}
	return user.DisplayName
}
