package groups

import "github.com/lotas/tabgrid/internal/types"

// Options configures a Resolver.
type Options struct {
	// StableIDs keeps a single-tab group a first-class group.
	StableIDs bool
	// PaletteSize is the number of assignable colors. Zero means the
	// default browser palette.
	PaletteSize int
}

type mergeKey struct{ src, dst int }

// pendingMerge remembers what a merge moved so that it can be rolled back.
type pendingMerge struct {
	key       mergeKey
	committed bool

	copiedTitle bool
	copiedColor bool

	srcTitle    string
	hadSrcTitle bool
	srcColor    int
	hadSrcColor bool
}

// Resolver computes effective group properties from a Store and applies
// the hand-over rules when group identity changes.
type Resolver struct {
	store       Store
	stableIDs   bool
	paletteSize int
	// merge is the most recent merge; only it can be rolled back.
	merge *pendingMerge
}

// NewResolver creates a Resolver on top of store.
func NewResolver(store Store, opts Options) *Resolver {
	size := opts.PaletteSize
	if size <= 0 {
		size = len(types.Palette)
	}
	return &Resolver{
		store:       store,
		stableIDs:   opts.StableIDs,
		paletteSize: size,
	}
}

// StableIDs reports the grouping mode.
func (r *Resolver) StableIDs() bool {
	return r.stableIDs
}

// IsRealGroup reports whether a group with memberCount tabs keeps group
// identity in the current mode.
func (r *Resolver) IsRealGroup(memberCount int) bool {
	return memberCount > 1 || (r.stableIDs && memberCount == 1)
}

// EffectiveTitle returns the stored title of a real group. Otherwise it
// reports false and the representative tab's own title applies.
func (r *Resolver) EffectiveTitle(rootID, memberCount int) (string, bool) {
	if !r.IsRealGroup(memberCount) {
		return "", false
	}
	t, ok := r.store.Title(rootID)
	if !ok || t == "" {
		return "", false
	}
	return t, true
}

// EffectiveColor returns the stored color of a real group, or NoColor.
func (r *Resolver) EffectiveColor(rootID, memberCount int) int {
	if !r.IsRealGroup(memberCount) {
		return types.NoColor
	}
	if c, ok := r.store.Color(rootID); ok {
		return c
	}
	return types.NoColor
}

// HasColor reports whether a color is stored for rootID.
func (r *Resolver) HasColor(rootID int) bool {
	_, ok := r.store.Color(rootID)
	return ok
}

// NextSuggestedColor returns the smallest palette index not used by any of
// the given groups. When every color is taken it wraps around.
func (r *Resolver) NextSuggestedColor(usedRootIDs []int) int {
	used := make(map[int]bool)
	for _, root := range usedRootIDs {
		if c, ok := r.store.Color(root); ok {
			used[c] = true
		}
	}
	for c := 0; c < r.paletteSize; c++ {
		if !used[c] {
			return c
		}
	}
	return len(usedRootIDs) % r.paletteSize
}

// AssignDefaultColor stores the next suggested color for rootID unless it
// already has one, and returns the group's color.
func (r *Resolver) AssignDefaultColor(rootID int, otherRootIDs []int) int {
	if c, ok := r.store.Color(rootID); ok {
		return c
	}
	c := r.NextSuggestedColor(otherRootIDs)
	r.store.SetColor(rootID, c)
	return c
}

// SetTitle stores a user edit. An empty title removes the stored one.
func (r *Resolver) SetTitle(rootID int, title string) {
	if title == "" {
		r.store.RemoveTitle(rootID)
		return
	}
	r.store.SetTitle(rootID, title)
}

// SetColor stores a user edit. NoColor removes the stored color.
func (r *Resolver) SetColor(rootID, color int) {
	if color < 0 {
		r.store.RemoveColor(rootID)
		return
	}
	r.store.SetColor(rootID, color % r.paletteSize)
}

// StageMerge copies the source group's title and color to the destination
// when the destination has none. The source entries stay until CommitMerge.
// Staging again before the commit is a no-op; any earlier merge stops being
// undoable.
func (r *Resolver) StageMerge(srcRootID, dstRootID int) {
	if srcRootID == dstRootID {
		return
	}
	key := mergeKey{srcRootID, dstRootID}
	if r.merge != nil && r.merge.key == key && !r.merge.committed {
		return
	}
	pm := &pendingMerge{key: key}
	if t, ok := r.store.Title(srcRootID); ok {
		if _, has := r.store.Title(dstRootID); !has {
			r.store.SetTitle(dstRootID, t)
			pm.copiedTitle = true
		}
	}
	if c, ok := r.store.Color(srcRootID); ok {
		if _, has := r.store.Color(dstRootID); !has {
			r.store.SetColor(dstRootID, c)
			pm.copiedColor = true
		}
	}
	r.merge = pm
}

// CommitMerge deletes the source group's entries. Their values are kept
// with the pending merge so RollbackMerge can restore them.
func (r *Resolver) CommitMerge(srcRootID, dstRootID int) {
	if srcRootID == dstRootID {
		return
	}
	key := mergeKey{srcRootID, dstRootID}
	pm := r.merge
	if pm == nil || pm.key != key {
		pm = &pendingMerge{key: key}
		r.merge = pm
	}
	pm.committed = true
	if t, ok := r.store.Title(srcRootID); ok {
		pm.srcTitle, pm.hadSrcTitle = t, true
		r.store.RemoveTitle(srcRootID)
	}
	if c, ok := r.store.Color(srcRootID); ok {
		pm.srcColor, pm.hadSrcColor = c, true
		r.store.RemoveColor(srcRootID)
	}
}

// RollbackMerge undoes StageMerge and CommitMerge for the pair.
func (r *Resolver) RollbackMerge(srcRootID, dstRootID int) {
	pm := r.merge
	if pm == nil || pm.key != (mergeKey{srcRootID, dstRootID}) {
		return
	}
	r.merge = nil
	if pm.copiedTitle {
		r.store.RemoveTitle(dstRootID)
	}
	if pm.copiedColor {
		r.store.RemoveColor(dstRootID)
	}
	if pm.hadSrcTitle {
		r.store.SetTitle(srcRootID, pm.srcTitle)
	}
	if pm.hadSrcColor {
		r.store.SetColor(srcRootID, pm.srcColor)
	}
}

// MigrateRoot moves the stored title and color from oldRootID to newRootID.
func (r *Resolver) MigrateRoot(oldRootID, newRootID int) {
	if oldRootID == newRootID {
		return
	}
	if t, ok := r.store.Title(oldRootID); ok {
		r.store.SetTitle(newRootID, t)
		r.store.RemoveTitle(oldRootID)
	}
	if c, ok := r.store.Color(oldRootID); ok {
		r.store.SetColor(newRootID, c)
		r.store.RemoveColor(oldRootID)
	}
}

// ShrunkToSingle applies the size-1 rule: legacy mode drops the stored
// title and color, stable-ids mode keeps them.
func (r *Resolver) ShrunkToSingle(rootID int) {
	if r.stableIDs {
		return
	}
	r.Forget(rootID)
}

// Forget deletes everything stored for rootID.
func (r *Resolver) Forget(rootID int) {
	r.store.RemoveTitle(rootID)
	r.store.RemoveColor(rootID)
}
