// Package binding manages the lifetime, per-device caching and invalidation of
// the native binding objects that back the frame-pipelined renderer: descriptor
// set layouts, descriptor pools, descriptors, descriptor sets, pipeline layouts
// and pipelines. Objects validate lazily (validate-on-demand), cache one native
// handle per device (or per surface and in-flight slot for descriptor sets) and
// are invalidated eagerly when anything they were built from changes.
package binding

import "github.com/spaghettifunk/prisma/engine/core"

// SurfaceID identifies one presentation surface. Per-surface state inside a
// descriptor set (the in-flight handle and validity arrays) is keyed by it.
type SurfaceID string

// NewSurfaceID returns a fresh surface identity.
func NewSurfaceID() SurfaceID {
	return SurfaceID(core.NewID())
}

/**
 * @brief Everything a validate call needs to know about "where" it runs: the
 * device that owns per-device caches, the surface that owns per-slot state,
 * the in-flight slot currently being prepared and how many slots the surface
 * keeps outstanding.
 */
type RenderContext struct {
	/** @brief The device all per-device native objects are created on. */
	Device Device
	/** @brief The surface whose in-flight state is being prepared. */
	Surface SurfaceID
	/** @brief The in-flight slot index validation targets. */
	ImageIndex uint32
	/** @brief The number of in-flight slots the surface keeps. */
	ImageCount uint32
}
