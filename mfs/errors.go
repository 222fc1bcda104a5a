package mfs

import "fmt"

// Result is the outcome of an engine operation (spec section 7). Unlike a
// plain error, a Result can be positive: warnings report that an operation
// succeeded only after repairing or compacting something, information a
// caller may want to log but must not treat as failure.
type Result int

const (
	// Ok means the operation completed with nothing noteworthy to report.
	Ok Result = 0

	// RepairWarning means mount succeeded only after repairing one bank.
	RepairWarning Result = 1

	// GcWarning means the operation succeeded only after compacting to
	// the other bank.
	GcWarning Result = 2

	// IdNotFound means no live record carries the requested id.
	IdNotFound Result = -1

	// CrcError means a payload's CRC did not match its header on read.
	CrcError Result = -2

	// FlashFailure means a program verify failed, or a record does not
	// fit even after compaction.
	FlashFailure Result = -3

	// InternalError means mount exhausted its repair attempts without
	// reaching a stable bank state.
	InternalError Result = -4
)

// IsError reports whether r represents a failed operation.
func (r Result) IsError() bool {
	return r < Ok
}

// IsWarning reports whether r represents a successful operation that had
// to repair or compact something along the way.
func (r Result) IsWarning() bool {
	return r > Ok
}

func (r Result) String() string {
	switch r {
	case Ok:
		return "Ok"
	case RepairWarning:
		return "RepairWarning"
	case GcWarning:
		return "GcWarning"
	case IdNotFound:
		return "IdNotFound"
	case CrcError:
		return "CrcError"
	case FlashFailure:
		return "FlashFailure"
	case InternalError:
		return "InternalError"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Error lets a Result be returned or wrapped as a Go error where that is
// more convenient for a caller than checking IsError explicitly. Only
// called on Results for which IsError is true; calling it on Ok or a
// warning produces a misleading but harmless string.
func (r Result) Error() string {
	return r.String()
}
