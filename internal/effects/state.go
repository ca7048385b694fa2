package effects

// State is the opaque temporal-state slot owned by a single effect instance.
// Stateful effects store their caches here keyed by frame size; a size change
// drops the cache and the next frame passes through unchanged.
type State struct {
	width, height int
	value         any
}

// Reset drops any cached state.
func (s *State) Reset() {
	if s != nil {
		*s = State{}
	}
}

// Initialized reports whether the slot currently holds state.
func (s *State) Initialized() bool {
	return s != nil && s.value != nil
}

// stateFor returns the slot's value of type T for a w×h frame, allocating a new
// one when the slot is empty, holds a different type, or was built for another
// size. fresh is true when the value was just allocated.
func stateFor[T any](st *State, w, h int, alloc func() *T) (v *T, fresh bool) {
	if st == nil {
		return alloc(), true
	}
	if cur, ok := st.value.(*T); ok && st.width == w && st.height == h {
		return cur, false
	}
	v = alloc()
	st.width, st.height, st.value = w, h, v
	return v, true
}
