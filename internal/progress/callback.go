// Package progress provides progress reporting utilities for long-running searches.
package progress

// Callback reports progress during long operations.
//   - current: number of items completed
//   - total: total number of items
//   - message: description of the current phase
//
// Callbacks passed to the search may be invoked from several goroutines.
type Callback func(current, total int, message string)

// Call safely invokes the callback if non-nil.
func Call(cb Callback, current, total int, message string) {
	if cb != nil {
		cb(current, total, message)
	}
}
