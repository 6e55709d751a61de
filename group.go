// Copyright (c) 2024 Neomantra Corp

package sbe

// entryBinding records where one repeating-group entry's fixed block
// starts, and where each of its nested sub-groups' dimension composites
// start, both as offsets relative to the message's base offset.
type entryBinding struct {
	offset        int
	nestedOffsets []int
}

// GroupCursor iterates the entries of one repeating group. It is a lazy,
// non-restartable cursor: Next() plus the Field()/Fields()/Group() accessors expose the
// current entry only, rebound in place on every call — matching the
// original's "field objects get reused and overwritten on each round"
// behavior. Callers that need to retain results across iterations (or
// compare entries against each other) should call Values() instead, which
// eagerly materializes every entry into plain data.
type GroupCursor struct {
	desc         *GroupDescriptor
	buf          []byte
	base         int
	blockLength  int
	numInstances int
	entries      []entryBinding
	idx          int
	version      int
}

// bindGroup binds the group's dimension composite at groupStart (an
// offset relative to base) and walks every entry — and any nested
// groups — to compute each entry's offset and the group's total consumed
// size. This mirrors SBERepeatingGroupContainer.wrap: a nested group's
// entries begin immediately after its parent entry's fixed block, and the
// next parent entry begins only after all of the previous entry's nested
// groups have been accounted for. version is the enclosing message's
// version, carried down so a field whose SinceVersion exceeds it is not
// exposed, per invariant 4.
func bindGroup(desc *GroupDescriptor, buf []byte, base, groupStart, version int) (*GroupCursor, int) {
	blockLength := int(readRaw(buf, base+groupStart, PrimitiveUint16, LittleEndian))
	numInstances := int(readRaw(buf, base+groupStart+2, PrimitiveUint16, LittleEndian))

	gc := &GroupCursor{
		desc:         desc,
		buf:          buf,
		base:         base,
		blockLength:  blockLength,
		numInstances: numInstances,
		idx:          -1,
		version:      version,
	}

	repeatedOffset := groupStart + desc.DimensionSize
	nestedLength := 0
	for i := 0; i < numInstances; i++ {
		eb := entryBinding{offset: repeatedOffset + nestedLength}
		repeatedOffset += blockLength
		for j := range desc.Groups {
			nestedOffset := repeatedOffset + nestedLength
			eb.nestedOffsets = append(eb.nestedOffsets, nestedOffset)
			_, subSize := bindGroup(&desc.Groups[j], buf, base, nestedOffset, version)
			nestedLength += subSize
		}
		gc.entries = append(gc.entries, eb)
	}
	size := desc.DimensionSize + numInstances*blockLength + nestedLength
	return gc, size
}

// Len returns numInGroup, the number of entries in this group.
func (g *GroupCursor) Len() int { return g.numInstances }

// Next advances the cursor to the next entry, rebinding it in place.
// Returns false once every entry has been visited; it does not rewind.
func (g *GroupCursor) Next() bool {
	if g.idx+1 >= g.numInstances {
		return false
	}
	g.idx++
	return true
}

// Field returns the named field of the current entry. A field whose
// SinceVersion exceeds the enclosing message's version is not exposed.
func (g *GroupCursor) Field(name string) (Field, bool) {
	if g.idx < 0 || g.idx >= g.numInstances {
		return Field{}, false
	}
	for i := range g.desc.Fields {
		fd := &g.desc.Fields[i]
		if fd.Name != name {
			continue
		}
		if fd.SinceVersion > g.version {
			return Field{}, false
		}
		return bindField(fd, g.buf, g.base, g.entries[g.idx].offset), true
	}
	return Field{}, false
}

// Fields returns every field of the current entry exposed at the
// enclosing message's version, bound in place.
func (g *GroupCursor) Fields() []Field {
	if g.idx < 0 || g.idx >= g.numInstances {
		return nil
	}
	fields := make([]Field, 0, len(g.desc.Fields))
	for i := range g.desc.Fields {
		fd := &g.desc.Fields[i]
		if fd.SinceVersion > g.version {
			continue
		}
		fields = append(fields, bindField(fd, g.buf, g.base, g.entries[g.idx].offset))
	}
	return fields
}

// Group returns a cursor over the current entry's nested group of the
// given name.
func (g *GroupCursor) Group(name string) (*GroupCursor, bool) {
	if g.idx < 0 || g.idx >= g.numInstances {
		return nil, false
	}
	eb := g.entries[g.idx]
	for j := range g.desc.Groups {
		if g.desc.Groups[j].Name == name {
			sub, _ := bindGroup(&g.desc.Groups[j], g.buf, g.base, eb.nestedOffsets[j], g.version)
			return sub, true
		}
	}
	return nil, false
}

// EntrySnapshot is an eagerly materialized repeating-group entry: decoded
// field values by name, plus any nested groups' own snapshots by name.
// Unlike the cursor, a snapshot is safe to retain and compare after the
// buffer it was read from is reused.
type EntrySnapshot struct {
	Fields map[string]any
	Groups map[string][]EntrySnapshot
}

// Values eagerly decodes every entry of this group (and, recursively,
// every nested group) into a slice of EntrySnapshot.
func (g *GroupCursor) Values() []EntrySnapshot {
	out := make([]EntrySnapshot, g.numInstances)
	for i := 0; i < g.numInstances; i++ {
		out[i] = g.snapshotEntry(i)
	}
	return out
}

func (g *GroupCursor) snapshotEntry(i int) EntrySnapshot {
	eb := g.entries[i]
	fields := make(map[string]any, len(g.desc.Fields))
	for fi := range g.desc.Fields {
		fd := &g.desc.Fields[fi]
		if fd.SinceVersion > g.version {
			continue
		}
		fields[fd.Name] = bindField(fd, g.buf, g.base, eb.offset).Value()
	}
	var groups map[string][]EntrySnapshot
	if len(g.desc.Groups) > 0 {
		groups = make(map[string][]EntrySnapshot, len(g.desc.Groups))
		for j := range g.desc.Groups {
			sub, _ := bindGroup(&g.desc.Groups[j], g.buf, g.base, eb.nestedOffsets[j], g.version)
			groups[g.desc.Groups[j].Name] = sub.Values()
		}
	}
	return EntrySnapshot{Fields: fields, Groups: groups}
}
