// Package ident derives deterministic per-instance identities for a group
// of virtual machines.
//
// A group declares a base VMID, a base name, and a count. Each ordinal
// position 0..count-1 maps to exactly one (VMID, name) pair: a group of
// one keeps the base identity untouched, a larger group numbers both the
// VMID and the name. The mapping is pure; calling it twice with the same
// inputs always yields the same identities.
package ident

import "fmt"

// Identity is the derived platform identity of one instance.
type Identity struct {
	// VMID is the numeric instance identifier on the platform.
	VMID int

	// Name is the instance name shown by the platform.
	Name string
}

// Instance returns the identity for one ordinal position within a group.
//
// For count <= 1 the base identity is returned unchanged. For larger
// groups the VMID is baseID+ordinal and the name carries a 1-based
// suffix: base "web" with count 3 yields web-1, web-2, web-3.
//
// An ordinal outside [0, count) is a programming error and panics.
func Instance(baseID int, baseName string, count, ordinal int) Identity {
	if ordinal < 0 || ordinal >= max(count, 1) {
		panic(fmt.Sprintf("ident: ordinal %d out of range for count %d", ordinal, count))
	}
	if count <= 1 {
		return Identity{VMID: baseID, Name: baseName}
	}
	return Identity{
		VMID: baseID + ordinal,
		Name: fmt.Sprintf("%s-%d", baseName, ordinal+1),
	}
}

// Allocate returns the identities of all ordinals of a group up front,
// index i holding ordinal i.
func Allocate(baseID int, baseName string, count int) []Identity {
	if count < 1 {
		return nil
	}
	ids := make([]Identity, count)
	for ordinal := range count {
		ids[ordinal] = Instance(baseID, baseName, count, ordinal)
	}
	return ids
}
