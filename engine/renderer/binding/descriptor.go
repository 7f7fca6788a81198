package binding

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

/**
 * @brief Descriptor binds one binding slot to its backing resources (one, or
 * an array for indexed bindings) plus the resource-kind tag. It is owned by
 * exactly one DescriptorSet; the back-reference exists only so that resource
 * mutations can cascade into the owning set.
 *
 * A descriptor registers itself as an observer in every backing resource.
 * Registration and unregistration are symmetric: the set registers the
 * descriptor when the binding is assigned and unregisters it when the binding
 * is cleared or the set is destroyed.
 */
type Descriptor struct {
	owner     *DescriptorSet
	resources []Resource
	kind      metadata.DescriptorKind
}

func newDescriptor(owner *DescriptorSet, kind metadata.DescriptorKind, resources []Resource) *Descriptor {
	return &Descriptor{
		owner:     owner,
		resources: resources,
		kind:      kind,
	}
}

// Kind returns the resource-kind tag of this binding.
func (d *Descriptor) Kind() metadata.DescriptorKind {
	return d.kind
}

// Resources returns the backing resources.
func (d *Descriptor) Resources() []Resource {
	return d.resources
}

func (d *Descriptor) registerInResources() {
	for _, r := range d.resources {
		r.RegisterObserver(d)
	}
}

func (d *Descriptor) unregisterFromResources() {
	for _, r := range d.resources {
		r.UnregisterObserver(d)
	}
}

// Validate passes through to every backing resource for the given context.
func (d *Descriptor) Validate(ctx *RenderContext) error {
	for _, r := range d.resources {
		if err := r.Validate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DescriptorValues gathers the current concrete binding values of all backing
// resources, in declaration order.
func (d *Descriptor) DescriptorValues(ctx *RenderContext) ([]DescriptorValue, error) {
	values := make([]DescriptorValue, 0, len(d.resources))
	for _, r := range d.resources {
		rv, err := r.DescriptorValues(ctx)
		if err != nil {
			return nil, fmt.Errorf("descriptor (%s): %w", d.kind, err)
		}
		values = append(values, rv...)
	}
	return values, nil
}

// Invalidate clears cached validity on the owning set, forcing the set to
// rebuild its native handles on the next validation. It is the callback the
// backing resources invoke on mutation.
func (d *Descriptor) Invalidate() {
	if d.owner != nil {
		d.owner.Invalidate()
	}
}
