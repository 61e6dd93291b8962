package gwutils

import "github.com/goavatar/goavatar/engine/gwlog"

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		err := recover()
		if err != nil {
			gwlog.TraceError("%p panic: %v", f, err)
			paniced = true
		}
	}()

	f()
	return
}

// CatchPanic calls a function and converts a panic into a returned value
//
// Message handlers use it so that a malformed message can never escape the message boundary.
func CatchPanic(f func()) (err interface{}) {
	defer func() {
		err = recover()
		if err != nil {
			gwlog.TraceError("%p panic: %v", f, err)
		}
	}()

	f()
	return
}
