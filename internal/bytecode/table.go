package bytecode

// tableMaxLoad is the maximum load factor (count / capacity, tombstones
// included) before a table grows.
const tableMaxLoad = 0.75

// entry is one slot of a Table: an interned string key (nil means the
// slot is empty or a tombstone) and its value. A tombstone is
// distinguished from a truly empty slot by its value: Key == nil and
// Value == Bool(true) marks a tombstone; Key == nil and Value == Nil
// marks empty.
type entry struct {
	Key   *ObjString
	Value Value
}

func (e entry) isEmpty() bool     { return e.Key == nil && e.Value.IsNil() }
func (e entry) isTombstone() bool { return e.Key == nil && !e.Value.IsNil() }

// Table is a flat open-addressed hash map from interned strings to
// values, using linear probing and a power-of-two capacity starting at
// 8. It backs globals, instance fields, and class method tables.
type Table struct {
	count    int // live entries + tombstones
	entries  []entry
}

// NewTable returns an empty table with no backing storage allocated yet.
func NewTable() *Table { return &Table{} }

// Count returns the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	live := 0
	for _, e := range t.entries {
		if !e.isEmpty() && !e.isTombstone() {
			live++
		}
	}
	return live
}

// find returns the index of the slot key should occupy: either the slot
// already holding it, the first tombstone seen along the probe sequence
// (so repeated insert/delete churn doesn't grow the probe chain forever),
// or the first empty slot.
func find(entries []entry, key *ObjString) int {
	capacity := len(entries)
	index := int(key.Hash) & (capacity - 1)
	var tombstone = -1
	for {
		e := &entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				if tombstone != -1 {
					return tombstone
				}
				return index
			}
			if tombstone == -1 {
				tombstone = index
			}
		} else if e.Key == key {
			return index
		}
		index = (index + 1) & (capacity - 1)
	}
}

func (t *Table) grow(capacity int) {
	entries := make([]entry, capacity)
	t.count = 0
	for _, e := range t.entries {
		if e.Key == nil {
			continue
		}
		idx := find(entries, e.Key)
		entries[idx].Key = e.Key
		entries[idx].Value = e.Value
		t.count++
	}
	t.entries = entries
}

// Set stores value under key, growing the table first if doing so would
// push the load factor above 0.75. It reports whether this inserted a
// brand-new key (as opposed to overwriting an existing one).
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		capacity := 8
		if len(t.entries) > 0 {
			capacity = len(t.entries) * 2
		}
		t.grow(capacity)
	}
	idx := find(t.entries, key)
	e := &t.entries[idx]
	isNewKey := e.Key == nil
	if isNewKey && e.Value.IsNil() {
		t.count++
	}
	e.Key = key
	e.Value = value
	return isNewKey
}

// Get looks up key, returning its value and whether it was present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return Nil, false
	}
	idx := find(t.entries, key)
	e := &t.entries[idx]
	if e.Key == nil {
		return Nil, false
	}
	return e.Value, true
}

// Delete removes key, leaving a tombstone in its slot so later probes
// that passed through it still find keys beyond it. Reports whether the
// key was present.
func (t *Table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := find(t.entries, key)
	e := &t.entries[idx]
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = Bool(true) // tombstone sentinel
	return true
}

// AddAll copies every live entry from t into dst, used to implement
// class-method inheritance (OpInherit copies superclass methods into the
// subclass's table before the subclass's own METHOD ops can override
// them).
func (t *Table) AddAll(dst *Table) {
	for _, e := range t.entries {
		if e.Key != nil {
			dst.Set(e.Key, e.Value)
		}
	}
}

// FindString looks up an interned string by raw content and hash,
// without requiring an *ObjString to already exist. This is what lets
// the string table check "have I already interned this content?" before
// allocating a new ObjString.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := len(t.entries)
	index := int(hash) & (capacity - 1)
	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				return nil
			}
		} else if e.Key.Hash == hash && e.Key.Chars == chars {
			return e.Key
		}
		index = (index + 1) & (capacity - 1)
	}
}

// RemoveWhiteKeys deletes every entry whose key is not marked, used by
// the GC to drop weak references to strings about to be swept. Each
// removed entry becomes a tombstone; nothing is returned.
func (t *Table) RemoveWhiteKeys() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != nil && !e.Key.Marked {
			e.Key = nil
			e.Value = Bool(true) // tombstone
		}
	}
}

// Each calls fn for every live entry. fn must not mutate the table.
func (t *Table) Each(fn func(key *ObjString, value Value)) {
	for _, e := range t.entries {
		if e.Key != nil {
			fn(e.Key, e.Value)
		}
	}
}
