package common

// Both sides of a connection resolve dirty states and blob types from the
// manifests below. Append new entries at the end; reordering changes the
// wire ids.

var dirtyManifest = []string{
	"parent",
	"size",
	"position",
	"rotation",
	"scale",
	"center",
	"color",
	"opacity",
	"blend",
	"clipping",
	"shader",
	"flags",
	"internal_a",
	"internal_b",
	"internal_c",
	"internal_d",
	"internal_e",
	"internal_f",
}

var blobManifest = []string{
	"header",
	"command",
	"delete",
	"sprite",
	"circle",
	"video",
	"canvas",
	"text",
}

// Blob type 0 is the terminator.
var (
	DirtyStates = MustRegistry("dirty state", 0, MaxDirtyStates, dirtyManifest...)
	BlobTypes   = MustRegistry("blob type", 1, 256, blobManifest...)
)

// NewUniqueDirtyState returns the single bit mask assigned to name.
func NewUniqueDirtyState(name string) DirtyState {
	return DirtyState(1) << uint(DirtyStates.MustLookup(name))
}

// BlobType returns the wire tag of a block type.
func BlobType(name string) byte {
	return byte(BlobTypes.MustLookup(name))
}

var (
	HeaderBlob  = BlobType("header")
	CommandBlob = BlobType("command")
	DeleteBlob  = BlobType("delete")
)
