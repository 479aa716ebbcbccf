package pipeline

import "fmt"

// FlushError reports that handled identifiers could not be made durable on
// shutdown. Those events may be acted on again after a restart.
type FlushError struct {
	Pending int
	Err     error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush dedup store: %d identifiers not durable: %v", e.Pending, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}
