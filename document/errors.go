package document

import "errors"

// Load errors are fatal to the whole document. They are surfaced once
// and carry enough identity for the caller to offer a targeted retry:
// a timeout wants a plain retry, an unsupported format does not.
var (
	// ErrSourceUnreachable means the source could not be read at all.
	ErrSourceUnreachable = errors.New("document: source unreachable")

	// ErrCorrupt means the source was read but could not be decoded.
	ErrCorrupt = errors.New("document: corrupt document")

	// ErrUnsupported means the format is recognized but not handled.
	ErrUnsupported = errors.New("document: unsupported format")

	// ErrOpenTimeout means Open exceeded its deadline. Distinct from
	// ErrCorrupt so the UI can offer a retry affordance.
	ErrOpenTimeout = errors.New("document: open timed out")

	// ErrClosed is returned when using a handle after Close.
	ErrClosed = errors.New("document: handle is closed")

	// ErrPageOutOfRange is returned for page indices outside the
	// document.
	ErrPageOutOfRange = errors.New("document: page index out of range")
)

// IsLoadError reports whether err belongs to the load-error taxonomy,
// as opposed to a per-page render or extraction failure.
func IsLoadError(err error) bool {
	return errors.Is(err, ErrSourceUnreachable) ||
		errors.Is(err, ErrCorrupt) ||
		errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrOpenTimeout)
}
