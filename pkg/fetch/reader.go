package fetch

import "io"

// progressWriter reports every write to the handlers and discards nothing;
// it is teed next to the real destination.
type progressWriter struct {
	handlers *Handlers
	locator  string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.handlers.progress(pw.locator, len(p))
	return len(p), nil
}

// copyObject copies src into dst with progress reporting and an optional size
// limit. proto names the protocol in returned errors.
func copyObject(proto string, dst io.Writer, src io.Reader, limit int64, handlers *Handlers, locator string) (int64, error) {
	if limit > 0 {
		src = io.LimitReader(src, limit+1)
	}
	n, err := io.Copy(io.MultiWriter(dst, &progressWriter{handlers: handlers, locator: locator}), src)
	if err != nil {
		return n, err
	}
	if limit > 0 && n > limit {
		return n, NewPermanentError(proto, "fetch:limit", ErrTooLarge)
	}
	return n, nil
}
