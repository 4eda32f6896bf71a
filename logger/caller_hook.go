package logger

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

const maxCallDepth = 24

// callSiteHook points entry.Caller at the first frame outside logrus and this
// package, so file:line names the session code that logged.
type callSiteHook struct {
	skip []string
}

func newCallSiteHook() *callSiteHook {
	return &callSiteHook{skip: []string{
		"github.com/sirupsen/logrus",
		reflect.TypeOf(callSiteHook{}).PkgPath() + ".",
	}}
}

func (h *callSiteHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callSiteHook) Fire(entry *logrus.Entry) error {
	if frame, ok := h.callSite(); ok {
		entry.Caller = &frame
	}
	return nil
}

func (h *callSiteHook) callSite() (runtime.Frame, bool) {
	pcs := make([]uintptr, maxCallDepth)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !h.internal(frame.Function) {
			return frame, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

func (h *callSiteHook) internal(fn string) bool {
	for _, prefix := range h.skip {
		if strings.HasPrefix(fn, prefix) {
			return true
		}
	}
	return false
}
