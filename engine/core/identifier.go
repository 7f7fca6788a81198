package core

import (
	"sync"

	"github.com/google/uuid"
)

// NewID returns a globally unique identifier for engine-side objects
// (surfaces, textures, render targets).
func NewID() string {
	return uuid.New().String()
}

var ownersMu sync.Mutex
var owners []interface{}

// IdentifierAcquireNewID hands out a small reusable numeric id, recording its
// owner. Used where a dense index is needed instead of a uuid (object picking,
// per-instance records).
func IdentifierAcquireNewID(owner interface{}) uint32 {
	ownersMu.Lock()
	defer ownersMu.Unlock()

	for i := range owners {
		if owners[i] == nil {
			owners[i] = owner
			return uint32(i)
		}
	}
	owners = append(owners, owner)
	return uint32(len(owners) - 1)
}

// IdentifierReleaseID frees a previously acquired id for reuse.
func IdentifierReleaseID(id uint32) {
	ownersMu.Lock()
	defer ownersMu.Unlock()

	if id < uint32(len(owners)) {
		owners[id] = nil
	}
}
