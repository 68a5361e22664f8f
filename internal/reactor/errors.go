package reactor

import "errors"

// Sentinel errors, following the teacher's pattern of declaring one Err*
// value per failure mode instead of ad-hoc string errors.
var (
	ErrLoopAlreadyRunning = errors.New("reactor: loop is already running")
	ErrLoopTerminated     = errors.New("reactor: loop has been terminated")
	ErrReentrantRun       = errors.New("reactor: Loop must not be started from within itself")
	ErrNotInLoopThread    = errors.New("reactor: operation requires the loop's own thread")
	ErrTimerNotFound      = errors.New("reactor: timer id not found or already fired")
	ErrConnectorStopped   = errors.New("reactor: connector has been stopped")
	ErrConnectionClosed   = errors.New("reactor: connection is not connected")
	ErrServerStopped      = errors.New("reactor: server has been stopped")
)
