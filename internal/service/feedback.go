package service

import (
	"context"
	"strconv"

	"github.com/thoas/go-funk"

	"github.com/prepdeck/prepdeck/internal/db/storage"
	"github.com/prepdeck/prepdeck/internal/models"
)

// createdAtLayout is the human-readable stamp stored on feedback records,
// always in UTC.
const createdAtLayout = "2006-01-02 15:04:05"

// CreateFeedback validates and persists an interview-feedback record.
//
// All six fields are required and zero counts as missing, so a legitimate
// score or duration of 0 is rejected as absent. The referenced user is never
// checked for existence.
func (s *Service) CreateFeedback(ctx context.Context, req models.CreateFeedbackRequest) error {
	if isMissing(req.UserID) ||
		isMissing(req.Score) ||
		isMissing(req.Feedback) ||
		isMissing(req.Duration) ||
		isMissing(req.Position) ||
		isMissing(req.Company) {
		return ErrFeedbackFieldsRequired
	}

	score, err := toInt64(req.Score)
	if err != nil {
		return err
	}
	if score < 1 || score > 100 {
		return ErrScoreOutOfRange
	}

	userID, err := toInt64(req.UserID)
	if err != nil {
		return err
	}
	duration, err := toInt64(req.Duration)
	if err != nil {
		return err
	}

	record := storage.Record{
		"id":         s.newRecordID(),
		"user_id":    userID,
		"score":      score,
		"feedback":   req.Feedback,
		"duration":   duration,
		"position":   req.Position,
		"company":    req.Company,
		"created_at": s.now().UTC().Format(createdAtLayout),
	}

	if err := s.db.Put(ctx, models.FeedbackTable, record); err != nil {
		return err
	}
	s.notifyChanged()

	return nil
}

// GetFeedbackByUser returns every feedback record for the given user id. A
// user with no feedback yields an empty slice, not an error.
func (s *Service) GetFeedbackByUser(ctx context.Context, userIDStr string) ([]storage.Record, error) {
	if !isAllDigits(userIDStr) {
		return nil, ErrInvalidFeedbackUserID
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return nil, ErrInvalidFeedbackUserID
	}

	matches, err := s.db.Scan(ctx, models.FeedbackTable, storage.Filter{"user_id": userID})
	if err != nil {
		return nil, err
	}

	return funk.Map(matches, storage.NormalizeRecord).([]storage.Record), nil
}

// DeleteFeedback removes a feedback record by the id taken from the request
// body.
func (s *Service) DeleteFeedback(ctx context.Context, rawID any) error {
	if isMissing(rawID) {
		return ErrMissingFeedbackID
	}
	id, err := toInt64(rawID)
	if err != nil {
		return ErrInvalidFeedbackID
	}

	_, found, err := s.db.Delete(ctx, models.FeedbackTable, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrFeedbackNotFound
	}
	s.notifyChanged()

	return nil
}

// GetInternalStats returns record counts for the internal stats endpoint.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.Count(ctx, models.UsersTable)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	feedback, err := s.db.Count(ctx, models.FeedbackTable)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users:    users,
		Feedback: feedback,
	}, nil
}
