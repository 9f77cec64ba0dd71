package editor

import (
	"menueditor-backend/internal/backup"
	"menueditor-backend/internal/menu"
)

// State is a step of the save pipeline.
type State string

const (
	StateIdle       State = "idle"
	StateDecoding   State = "decoding"
	StateValidating State = "validating"
	StateBackingUp  State = "backing_up"
	StateWriting    State = "writing"
	StateDone       State = "done"
	// StateRejected ends a save whose payload never reached storage.
	StateRejected State = "rejected"
	// StateFailed ends a save whose validated document could not be written.
	StateFailed State = "failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateRejected || s == StateFailed
}

// Flash messages shown to the operator after a save.
const (
	MessageSaved    = "Menu saved"
	MessageRejected = "Menu couldn't be saved, we have restored it to it's last known good state."
	MessageFailed   = "Menu couldn't be saved, the stored menu was left unchanged."
)

// Outcome reports how a save ended.
type Outcome struct {
	SaveID string
	State  State
	// Trace lists every state entered, in order.
	Trace []State
	// Document is the decoded submission, nil when decoding failed.
	Document *menu.Document
	// Bytes is the size of the written document.
	Bytes int
	// Backup is the snapshot taken of the previous document, if any.
	Backup *backup.Record
	// BackupErr is set when the snapshot or pruning failed. It never fails the
	// save.
	BackupErr error
	// Err is the reason for a rejected or failed save.
	Err error
}

// Saved reports whether the document was written.
func (o *Outcome) Saved() bool {
	return o != nil && o.State == StateDone
}

// Message is the flash message for the outcome.
func (o *Outcome) Message() string {
	switch {
	case o.Saved():
		return MessageSaved
	case o != nil && o.State == StateFailed:
		return MessageFailed
	default:
		return MessageRejected
	}
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Trace = append(o.Trace, s)
}
