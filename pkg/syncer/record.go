// Package syncer implements the offline synchronization core: the merge
// resolver that reconciles client-originated records with server state,
// and the gateway exposing batch push/pull on top of a storage port.
package syncer

import (
	"time"

	"github.com/google/uuid"
)

// Entity kinds exchanged over sync. Terminals hold local copies of the
// reference kinds and upload sales recorded while offline.
const (
	KindProduct  = "product"
	KindCustomer = "customer"
	KindSale     = "sale"
)

// Record is the wire representation of a shared entity. Identity is the
// sole merge key: two records with the same identity are the same logical
// entity no matter which side created them. Fields carries only the
// attributes the sender wants to write; absent fields are left untouched
// on update.
type Record struct {
	Kind         string         `json:"kind" msgpack:"kind"`
	Identity     string         `json:"identity" msgpack:"identity"`
	Fields       map[string]any `json:"fields" msgpack:"fields"`
	LastModified time.Time      `json:"last_modified" msgpack:"last_modified"`
}

// ValidIdentity reports whether token parses as a UUID.
func ValidIdentity(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}

// NewIdentity returns a fresh server-generated identity.
func NewIdentity() string {
	return uuid.NewString()
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
