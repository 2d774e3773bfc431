package service

import (
	"context"
	"regexp"
	"strconv"

	"github.com/prepdeck/prepdeck/internal/db/storage"
	"github.com/prepdeck/prepdeck/internal/models"
)

// emailPattern is anchored at the start only, matching the historical
// behavior of the registration check.
var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)

func isValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func isValidPassword(password string) bool {
	return runeLength(password) >= 8
}

func isValidUsername(username string) bool {
	length := runeLength(username)
	return length >= 3 && length <= 30
}

// CreateUser validates the registration request, enforces email uniqueness
// via a filtered scan and persists the new user record.
//
// The uniqueness scan and the subsequent write are not atomic: two concurrent
// registrations with the same email can both pass the scan. Closing that race
// needs a conditional write the store does not offer.
func (s *Service) CreateUser(ctx context.Context, req models.CreateUserRequest) error {
	if req.Email == "" || req.Password == "" || req.Username == "" {
		return ErrUserFieldsRequired
	}
	if !isValidEmail(req.Email) {
		return ErrInvalidEmail
	}
	if !isValidPassword(req.Password) {
		return ErrShortPassword
	}
	if !isValidUsername(req.Username) {
		return ErrBadUsernameLength
	}

	duplicates, err := s.db.Scan(ctx, models.UsersTable, storage.Filter{"email": req.Email})
	if err != nil {
		return err
	}
	if len(duplicates) > 0 {
		return ErrEmailTaken
	}

	record := storage.Record{
		"id":       s.newRecordID(),
		"email":    req.Email,
		"password": req.Password,
		"username": req.Username,
	}
	if req.EducationLevel != "" {
		record["education_level"] = req.EducationLevel
	}

	if err := s.db.Put(ctx, models.UsersTable, record); err != nil {
		return err
	}
	s.notifyChanged()

	return nil
}

// GetUser looks a user up by the decimal id taken from the request path and
// returns the stored record with the password attribute stripped and numeric
// attributes normalized.
func (s *Service) GetUser(ctx context.Context, idStr string) (storage.Record, error) {
	if !isAllDigits(idStr) {
		return nil, ErrInvalidUserID
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, ErrInvalidUserID
	}

	record, found, err := s.db.Get(ctx, models.UsersTable, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}

	delete(record, "password")

	return storage.NormalizeRecord(record), nil
}

// DeleteUser removes a user by the id taken from the request body. The delete
// is unconditional; a missing record is reported as not found.
func (s *Service) DeleteUser(ctx context.Context, rawID any) error {
	id, err := toInt64(rawID)
	if err != nil {
		return ErrInvalidUserID
	}

	_, found, err := s.db.Delete(ctx, models.UsersTable, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}
	s.notifyChanged()

	return nil
}
