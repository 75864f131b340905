package domain

import (
	"encoding/json"
	"time"
)

// EditState is a state of the transaction edit workflow.
type EditState string

const (
	EditIdle              EditState = "idle"
	EditDeleting          EditState = "deleting"
	EditVerifyingDeletion EditState = "verifying_deletion"
	EditRetrying          EditState = "retrying"
	EditBuilding          EditState = "building"
	EditValidating        EditState = "validating"
	EditPosting           EditState = "posting"
	EditVerifyingPost     EditState = "verifying_post"
)

// EditStatus is the outcome recorded for an edit.
type EditStatus string

const (
	EditStatusCompleted EditStatus = "completed"
	EditStatusCancelled EditStatus = "cancelled"
	EditStatusRestored  EditStatus = "restored"
	// EditStatusStuck means the original entries could not be removed or restored
	// and the transaction needs manual inspection.
	EditStatusStuck EditStatus = "stuck"
)

// IsValid reports whether s is a known edit status.
func (s EditStatus) IsValid() bool {
	switch s {
	case EditStatusCompleted, EditStatusCancelled, EditStatusRestored, EditStatusStuck:
		return true
	}
	return false
}

// EditRecord is the edit log row for one edit attempt.
type EditRecord struct {
	CreatedAt     time.Time
	ID            string
	TransactionID string
	Kind          VoucherKind
	State         EditState
	Status        EditStatus
	Original      []*LedgerEntry
	ErrorMessage  string
}

// MarshalEntries encodes captured entries for the edit log.
func MarshalEntries(entries []*LedgerEntry) []byte {
	if entries == nil {
		return []byte("[]")
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return []byte("[]")
	}
	return data
}

// UnmarshalEntries decodes entries captured by MarshalEntries.
func UnmarshalEntries(data []byte) ([]*LedgerEntry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []*LedgerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
