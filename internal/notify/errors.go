package notify

import "errors"

var (
	// ErrNoCategories is returned when a target carries no usable category label.
	ErrNoCategories = errors.New("at least one target category is required")
	// ErrTransportUnavailable aborts a dispatch before any recipient is tried.
	ErrTransportUnavailable = errors.New("mail transport unavailable")
)
