package util

import "errors"

var (
	ErrStudentNotFound           = errors.New("student not found")
	ErrTeacherNotFound           = errors.New("teacher not found")
	ErrModuleNotFound            = errors.New("module not found")
	ErrConversationNotFound      = errors.New("conversation not found")
	ErrMessageNotFound           = errors.New("message not found")
	ErrResourceNotFound          = errors.New("resource not found")
	ErrEmailRegistered           = errors.New("email already registered")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrTeacherRegistrationClosed = errors.New("teacher registration is restricted, please contact the administrator")
	ErrInvalidArgument           = errors.New("invalid argument")
	ErrPermissionDenied          = errors.New("permission denied")
	ErrStateClosed               = errors.New("learner state closed")
)
