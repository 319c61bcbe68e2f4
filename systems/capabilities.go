package systems

import (
	"strings"

	"github.com/mlange-42/ark/ecs"
)

// Attribute selects which capability a ray tests.
type Attribute uint8

const (
	BlocksMovement Attribute = iota
	BlocksVision
)

// Attribute names looked up through the resolver.
const (
	AttrCollides = "Collides"
	AttrOccludes = "Occludes"
)

// Name returns the entity attribute that controls this capability.
func (a Attribute) Name() string {
	if a == BlocksVision {
		return AttrOccludes
	}
	return AttrCollides
}

func (a Attribute) String() string {
	if a == BlocksVision {
		return "blocks_vision"
	}
	return "blocks_movement"
}

// Capabilities are the blocking flags of a registered entity.
type Capabilities struct {
	BlocksMovement bool
	BlocksVision   bool
}

// DefaultCapabilities blocks both movement and vision.
func DefaultCapabilities() Capabilities {
	return Capabilities{BlocksMovement: true, BlocksVision: true}
}

// Has reports whether the capability for a is set.
func (c Capabilities) Has(a Attribute) bool {
	if a == BlocksVision {
		return c.BlocksVision
	}
	return c.BlocksMovement
}

// AttrResolver looks up a named attribute for an entity.
type AttrResolver func(e ecs.Entity, name string) (string, bool)

// ResolveCapabilities reads both attributes once. A flag is true unless the
// attribute is present and equal to "false" (any case).
func ResolveCapabilities(e ecs.Entity, resolve AttrResolver) Capabilities {
	caps := DefaultCapabilities()
	if resolve == nil {
		return caps
	}
	caps.BlocksMovement = flagValue(resolve, e, AttrCollides)
	caps.BlocksVision = flagValue(resolve, e, AttrOccludes)
	return caps
}

func flagValue(resolve AttrResolver, e ecs.Entity, name string) bool {
	v, ok := resolve(e, name)
	if !ok {
		return true
	}
	return !strings.EqualFold(strings.TrimSpace(v), "false")
}
