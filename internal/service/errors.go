package service

// ErrorKind classifies a request failure so the transport layer can map it to
// a status code without inspecting messages.
type ErrorKind int

const (
	// KindValidation marks missing, malformed or out-of-range input.
	KindValidation ErrorKind = iota
	// KindConflict marks a uniqueness violation.
	KindConflict
	// KindNotFound marks an absent record on get or delete.
	KindNotFound
	// KindAuth marks a failed credential check.
	KindAuth
)

// ServiceError is a request failure with a caller-visible message. Anything
// that is not a *ServiceError is treated as internal by the transport layer.
type ServiceError struct {
	Kind    ErrorKind
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

var (
	ErrUserFieldsRequired = &ServiceError{Kind: KindValidation, Message: "Email, password, and username are required"}
	ErrInvalidEmail       = &ServiceError{Kind: KindValidation, Message: "Invalid email format"}
	ErrShortPassword      = &ServiceError{Kind: KindValidation, Message: "Password must be at least 8 characters"}
	ErrBadUsernameLength  = &ServiceError{Kind: KindValidation, Message: "Username must be between 3 and 30 characters"}
	ErrEmailTaken         = &ServiceError{Kind: KindConflict, Message: "A user with this email already exists"}
	ErrInvalidUserID      = &ServiceError{Kind: KindValidation, Message: "Invalid or missing ID"}
	ErrUserNotFound       = &ServiceError{Kind: KindNotFound, Message: "User not found"}

	ErrLoginFieldsRequired = &ServiceError{Kind: KindValidation, Message: "Email and password are required"}
	ErrInvalidCredentials  = &ServiceError{Kind: KindAuth, Message: "Invalid credentials"}

	ErrFeedbackFieldsRequired = &ServiceError{Kind: KindValidation, Message: "All fields are required"}
	ErrScoreOutOfRange        = &ServiceError{Kind: KindValidation, Message: "Score must be between 1 and 100"}
	ErrInvalidFeedbackUserID  = &ServiceError{Kind: KindValidation, Message: "Invalid or missing user_id"}
	ErrMissingFeedbackID      = &ServiceError{Kind: KindValidation, Message: "Missing feedback ID"}
	ErrInvalidFeedbackID      = &ServiceError{Kind: KindValidation, Message: "Invalid feedback ID"}
	ErrFeedbackNotFound       = &ServiceError{Kind: KindNotFound, Message: "Feedback not found"}
)
