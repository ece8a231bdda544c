// Package connid mints human-readable, sortable connection identifiers for
// log correlation, the same way the teacher's internal/worker.JobPrefix/
// JobID pair mints job IDs: a typeid.TypeID parameterized by a prefix type.
// The storage engine and wire protocol never see these — they only ever
// deal in the raw storage.ClientHandle — this exists purely so a log line
// reads "conn_01h2..." instead of a bare integer.
package connid

import "go.jetify.com/typeid"

// ConnPrefix is the "conn" prefix for connection IDs, mirroring JobPrefix's
// Prefix() method.
type ConnPrefix struct{}

func (ConnPrefix) Prefix() string { return "conn" }

// ConnID is a prefixed, sortable connection identifier used only in logs.
type ConnID struct {
	typeid.TypeID[ConnPrefix]
}

// New mints a fresh ConnID.
func New() (ConnID, error) {
	return typeid.New[ConnID]()
}
