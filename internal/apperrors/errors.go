package apperrors

import (
	"errors"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	ErrReviewAlreadyExists   = errors.New("review for vendor record already exists")
	ErrReviewNotFound        = errors.New("review not found")
	ErrReviewAlreadyResolved = errors.New("review already left pending state")
)
