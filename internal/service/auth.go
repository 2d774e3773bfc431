package service

import (
	"context"
	"fmt"

	"github.com/prepdeck/prepdeck/internal/db/storage"
	"github.com/prepdeck/prepdeck/internal/models"
)

// Login validates a credential pair against the stored user records by
// scanning with an exact email+password equality filter. On success it
// returns the matched user's id.
//
// When several records match (possible under the documented uniqueness race)
// the first record in scan order wins; scan order is backend-dependent, so
// the tie-break is non-deterministic.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (int64, error) {
	if req.Email == "" || req.Password == "" {
		return 0, ErrLoginFieldsRequired
	}

	matches, err := s.db.Scan(ctx, models.UsersTable, storage.Filter{
		"email":    req.Email,
		"password": req.Password,
	})
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, ErrInvalidCredentials
	}

	id, ok := storage.KeyOf(matches[0])
	if !ok {
		return 0, fmt.Errorf("stored user record has no integer id")
	}

	return id, nil
}
