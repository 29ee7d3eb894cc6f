package rewrite

// Kind is the attribute spelling of a tile reference.
type Kind string

const (
	// KindID is a tileset-local reference: <tile id="N">.
	KindID Kind = "id"
	// KindGID is a global reference shifted by the tileset's firstgid: <tile gid="N"/>.
	KindGID Kind = "gid"
)

// Rule decides which raw values denote content tiles.
type Rule struct {
	// TileCount is the number of content tiles in the atlas.
	TileCount int
	// FirstGID is the offset applied to gid references.
	FirstGID int
}

// Offset returns the base offset for references of kind k.
func (r Rule) Offset(k Kind) int {
	if k == KindGID {
		return r.FirstGID
	}
	return 0
}

// InRange reports whether v is a content tile reference of kind k, i.e.
// Offset(k) <= v < TileCount+Offset(k).
func (r Rule) InRange(k Kind, v int) bool {
	off := r.Offset(k)
	return v >= off && v < r.TileCount+off
}
