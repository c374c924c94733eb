package domain

import "errors"

var (
	// ErrValidation is returned for malformed submit/list/get arguments.
	ErrValidation = errors.New("invalid request")
	// ErrInterviewNotFound is returned when an interview id does not exist for the given user.
	ErrInterviewNotFound = errors.New("interview not found")
	// ErrSessionNotFound is returned when a session id is unknown or already torn down.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionFinished is returned for events sent after a session reached a terminal state.
	ErrSessionFinished = errors.New("session already finished")
	// ErrCaptureUnavailable indicates the audio/video capture device could not be acquired.
	ErrCaptureUnavailable = errors.New("capture unavailable")
	// ErrGeneration indicates the question generation service failed or returned garbage.
	ErrGeneration = errors.New("question generation failed")
)
