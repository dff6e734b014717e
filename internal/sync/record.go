// Package sync converts household entities to and from their remote
// record representation and reconciles local changes against the
// multi-device record service.
package sync

import "time"

// Record types, one per syncable entity.
const (
	RecordTypeFamily      = "family"
	RecordTypeUserProfile = "userProfile"
	RecordTypeMembership  = "membership"
)

// DeleteActionDeleteSelf marks a reference whose owning record is
// deleted when the referenced record is deleted remotely, mirroring
// the local membership cascade.
const DeleteActionDeleteSelf = "deleteSelf"

// Record is the wire representation of one remote record. Field values
// are JSON-shaped: strings, numbers, and reference maps. Timestamps
// travel as RFC 3339 strings.
type Record struct {
	Type       string                 `json:"recordType"`
	Name       string                 `json:"recordName"`
	Fields     map[string]interface{} `json:"fields"`
	ModifiedAt time.Time              `json:"modifiedAt,omitzero"`
}

// Reference builds a reference field pointing at another record. The
// delete action is always deleteSelf: the remote side cascades
// membership deletion when the referenced family or user disappears.
func Reference(recordName string) map[string]interface{} {
	return map[string]interface{}{
		"recordName": recordName,
		"action":     DeleteActionDeleteSelf,
	}
}

// referenceName extracts the record name from a reference field value.
func referenceName(v interface{}) (string, bool) {
	ref, ok := v.(map[string]interface{})
	if !ok {
		return "", false
	}
	name, ok := ref["recordName"].(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
