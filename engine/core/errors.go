package core

import (
	"errors"
)

var (
	// ErrNotValidated is returned when a native handle is requested from an
	// object that has never been validated for the given device or frame slot.
	ErrNotValidated = errors.New("object not validated")
	// ErrAlreadyValidated is returned when a binding schema is mutated after it
	// produced a native handle, without an explicit invalidation in between.
	ErrAlreadyValidated = errors.New("object already validated, invalidate first")
	// ErrPoolExhausted is returned when a descriptor pool has no capacity left
	// for another concurrently allocated set.
	ErrPoolExhausted = errors.New("descriptor pool exhausted")
	// ErrUnknownBinding is returned when a binding slot is not declared by the
	// schema it is resolved against.
	ErrUnknownBinding = errors.New("binding slot not declared in layout")
	// ErrCapabilityMissing is returned when a render path requires a device
	// feature the device does not expose.
	ErrCapabilityMissing = errors.New("device capability not supported")
)
