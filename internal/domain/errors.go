package domain

import "errors"

var (
	// ErrDrawingNotFound is returned when a drawing id does not exist.
	ErrDrawingNotFound = errors.New("drawing not found")
	// ErrInvalidDrawing is returned when a submitted drawing fails validation.
	ErrInvalidDrawing = errors.New("invalid drawing")
	// ErrSubmitConflict is returned when a score submission keeps losing the
	// optimistic transaction race and the retry budget is exhausted. No
	// partial state is written in that case.
	ErrSubmitConflict = errors.New("score submission conflicted with concurrent writes")
)
