package fetch

type (
	// StartHandlerFunc is called once a transfer begins, with the probed size (-1 if unknown).
	StartHandlerFunc func(locator string, contentLength int64)
	// ProgressHandlerFunc is called after each read with the byte count.
	ProgressHandlerFunc func(locator string, nread int)
	// CompleteHandlerFunc is called with the total bytes transferred.
	CompleteHandlerFunc func(locator string, total int64)
	// ErrorHandlerFunc is called when a transfer fails.
	ErrorHandlerFunc func(locator string, err error)
)

// Handlers receives transfer events. Any field may be nil.
type Handlers struct {
	StartHandler    StartHandlerFunc
	ProgressHandler ProgressHandlerFunc
	CompleteHandler CompleteHandlerFunc
	ErrorHandler    ErrorHandlerFunc
}

func (h *Handlers) start(locator string, n int64) {
	if h != nil && h.StartHandler != nil {
		h.StartHandler(locator, n)
	}
}

func (h *Handlers) progress(locator string, n int) {
	if h != nil && h.ProgressHandler != nil && n > 0 {
		h.ProgressHandler(locator, n)
	}
}

func (h *Handlers) complete(locator string, total int64) {
	if h != nil && h.CompleteHandler != nil {
		h.CompleteHandler(locator, total)
	}
}

func (h *Handlers) fail(locator string, err error) {
	if h != nil && h.ErrorHandler != nil {
		h.ErrorHandler(locator, err)
	}
}
