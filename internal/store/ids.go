package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID derives a stable identifier from the entity kind, a caller-supplied
// discriminator and the transaction timestamp. The same inputs always yield
// the same id, which keeps retried operations from fabricating duplicates.
func NewID(kind, extra string, at time.Time) string {
	base := fmt.Sprintf("%s:%d:%s", kind, at.UnixMicro(), extra)
	return fmt.Sprintf("%s-%s", kind, uuid.NewSHA1(uuid.NameSpaceURL, []byte(base)))
}

// ManagerTokenID is the deterministic inventory item id for a pool
// manager's token. Minting is idempotent because the id never varies.
func ManagerTokenID(managerID string) string {
	return "npc-" + managerID
}
