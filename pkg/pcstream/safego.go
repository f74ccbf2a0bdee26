package pcstream

import (
	"net/url"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/warpdl/warpstream/pkg/logger"
)

// safeGo runs fn in a goroutine with panic recovery. The caller must have
// called wg.Add(1) when wg is non-nil. Panics are logged with a stack trace
// and passed to onPanic.
func safeGo(l logger.Logger, wg *sync.WaitGroup, name string, onPanic func(r interface{}), fn func()) {
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer func() {
			if r := recover(); r != nil {
				if l != nil {
					l.Error("PANIC [%s]: %v\n%s", name, r, debug.Stack())
				}
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}

// redact strips credentials from URL locators before they are logged.
func redact(locator string) string {
	if !strings.Contains(locator, "@") {
		return locator
	}
	u, err := url.Parse(locator)
	if err != nil || u.User == nil {
		return locator
	}
	u.User = nil
	return u.String()
}
