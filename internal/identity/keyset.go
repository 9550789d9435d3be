package identity

// KeySet is a set of identity keys with O(1) membership tests.
type KeySet map[Key]struct{}

// NewKeySet builds a set from the keys produced by keyFn for each item.
func NewKeySet[T any](items []T, keyFn func(T) Key) KeySet {
	set := make(KeySet, len(items))
	for _, it := range items {
		set[keyFn(it)] = struct{}{}
	}
	return set
}

// Add inserts k.
func (s KeySet) Add(k Key) { s[k] = struct{}{} }

// Has reports whether k is in the set. A nil set contains nothing.
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Len returns the number of distinct keys.
func (s KeySet) Len() int { return len(s) }
