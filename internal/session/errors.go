package session

import "errors"

var (
	ErrNoSubjectSelected      = errors.New("session: no subject selected")
	ErrNoQuestionsForSubjects = errors.New("session: no questions available for the selected subjects")
	ErrAlreadyStarted         = errors.New("session: already started")
	ErrNotStarted             = errors.New("session: not started")
	ErrFinished               = errors.New("session: already submitted")
	ErrNoSelection            = errors.New("session: no option selected for the current question")
	ErrUnknownOption          = errors.New("session: option does not belong to the current question")
	ErrUnknownSubject         = errors.New("session: unknown subject")
	ErrSubmitInProgress       = errors.New("session: submission already in progress")
	ErrTimeUp                 = errors.New("session: time is up")
	ErrLoadFailed             = errors.New("session: failed to load questions")
	ErrSubmitFailed           = errors.New("session: submission failed")
	ErrNotReady               = errors.New("session: quiz is not available")
)
