package service

// StringSet is a set of strings (all elements are unique)
type StringSet map[string]struct{}

// NewStringSet creates a set from the slice
func NewStringSet(sl ...string) StringSet {
	ss := make(StringSet, len(sl))
	for _, s := range sl {
		ss.Push(s)
	}
	return ss
}

// Push adds the string to the set if not already exists
func (ss StringSet) Push(s string) {
	ss[s] = struct{}{}
}

// Pop removes the string from the set
func (ss StringSet) Pop(s string) {
	delete(ss, s)
}

// Slice returns a slice from the set
func (ss StringSet) Slice() []string {
	sl := make([]string, 0, len(ss))
	for k := range ss {
		sl = append(sl, k)
	}
	return sl
}

// Exists returns true if the string already exists in the Set
func (ss StringSet) Exists(s string) bool {
	_, ok := ss[s]
	return ok
}

// Unique returns the elements of sl without duplicates, keeping the first occurrence order
func Unique(sl []string) []string {
	ss := StringSet{}
	res := make([]string, 0, len(sl))
	for _, s := range sl {
		if !ss.Exists(s) {
			ss.Push(s)
			res = append(res, s)
		}
	}
	return res
}
