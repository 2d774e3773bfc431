// Package models defines the request and response shapes exchanged over HTTP
// and the constants shared between the services and the storage backends.
package models

// Table names in the underlying key-value store.
const (
	UsersTable    = "users"
	FeedbackTable = "interview_feedback"
)

// Storage backend types selectable via configuration.
const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeRedis
	StorageTypeFile
	StorageTypeMemory
)

// CreateUserRequest is the body of POST /users.
// EducationLevel is optional and stored only when non-empty.
type CreateUserRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Username       string `json:"username"`
	EducationLevel string `json:"education_level"`
}

// DeleteUserRequest is the body of DELETE /users.
// ID is untyped because clients send it both as a number and as a string.
type DeleteUserRequest struct {
	ID any `json:"id"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the matched user's id and nothing else.
type LoginResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// CreateFeedbackRequest is the body of POST /feedback. The numeric fields are
// untyped on purpose: they are coerced by the service, and a zero value counts
// as missing.
type CreateFeedbackRequest struct {
	UserID   any    `json:"user_id"`
	Score    any    `json:"score"`
	Feedback string `json:"feedback"`
	Duration any    `json:"duration"`
	Position string `json:"position"`
	Company  string `json:"company"`
}

// DeleteFeedbackRequest is the body of DELETE /feedback.
type DeleteFeedbackRequest struct {
	ID any `json:"id"`
}

// MessageResponse is the generic confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the generic failure body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// InternalStatsResponse is returned by the trusted-subnet stats endpoint.
type InternalStatsResponse struct {
	Users    int64 `json:"users"`
	Feedback int64 `json:"feedback"`
}
