package evidence

import (
	"bytes"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusVerified   Status = "verified"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusError
}

// SourceFile is the user-provided binary object a record was created from.
type SourceFile struct {
	Name    string
	Size    int64
	Content []byte
}

func (f SourceFile) Reader() *bytes.Reader {
	return bytes.NewReader(f.Content)
}

// Record is one evidence entry of a session. Fingerprint and Signature are set
// once at creation. LedgerRef and StorageRef are only set on a verified record.
type Record struct {
	ID          string    `json:"id"`
	Seq         int       `json:"seq"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	Fingerprint string    `json:"fingerprint"`
	Signature   string    `json:"signature"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LedgerRef   string    `json:"ledgerReference,omitempty"`
	StorageRef  string    `json:"storageReference,omitempty"`
	Failure     string    `json:"failure,omitempty"`

	source SourceFile
}

// Proof carries the references a confirmer attaches to a verified record.
// Empty fields are synthesized before the record is marked verified.
type Proof struct {
	LedgerRef  string
	StorageRef string
}

// ProgressEvent describes a single status transition of one record.
// From is empty for the initial pending event.
type ProgressEvent struct {
	RecordID   string    `json:"recordId"`
	Seq        int       `json:"seq"`
	From       Status    `json:"from,omitempty"`
	To         Status    `json:"to"`
	At         time.Time `json:"at"`
	LedgerRef  string    `json:"ledgerReference,omitempty"`
	StorageRef string    `json:"storageReference,omitempty"`
	Failure    string    `json:"failure,omitempty"`
}

func eventFor(r *Record, from Status) ProgressEvent {
	return ProgressEvent{
		RecordID:   r.ID,
		Seq:        r.Seq,
		From:       from,
		To:         r.Status,
		At:         r.UpdatedAt,
		LedgerRef:  r.LedgerRef,
		StorageRef: r.StorageRef,
		Failure:    r.Failure,
	}
}
