package logger

import "log/slog"

// Attribute keys shared by every component, so JSON logs from the engine,
// the ingest pool and the publishers can be joined on the same fields.
const (
	KeyComponent  = "component"
	KeyUserID     = "user_id"
	KeyKind       = "kind"
	KeyIdentity   = "identity"
	KeyAction     = "action"
	KeyReason     = "reason"
	KeyFactID     = "fact_id"
	KeyConflictID = "conflict_id"
	KeyLine       = "line"
	KeyError      = "error"
)

// Component returns l tagged with a component name. A nil l yields a Nop
// logger so constructors can accept an optional logger.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l.With(KeyComponent, name)
}

// Err is the attribute errors are logged under.
func Err(err error) slog.Attr {
	return slog.Any(KeyError, err)
}
