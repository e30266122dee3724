package events

import "time"

// ScriptStart is emitted before a script is evaluated.
type ScriptStart struct {
	Script string
	// Joined is true when the script runs inside a caller-owned transaction.
	Joined bool
}

// ScriptFinish is emitted after a script execution completes. FailureKind is
// empty on success.
type ScriptFinish struct {
	Script      string
	Joined      bool
	FailureKind string
	Err         error
	Duration    time.Duration
}

// GraphCommit is emitted after an auto-commit transaction has been committed
// or has failed to commit.
type GraphCommit struct {
	Graph    string
	Err      error
	Duration time.Duration
}
