package compiler

import "github.com/ahrtr/gocontainer/set"

// scope is the stack of names bound by enclosing blocks.  The outermost frame
// holds the top-level set bindings and is never popped.
type scope []set.Interface

func newScope() scope {
	return scope{set.New()}
}

func (s *scope) push() {
	*s = append(*s, set.New())
}

func (s *scope) pop() {
	if len(*s) > 1 {
		*s = (*s)[:len(*s)-1]
	}
}

// lookup reports whether name is bound in any frame.
func (s scope) lookup(name string) bool {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Contains(name) {
			return true
		}
	}
	return false
}

// declare binds name in the innermost frame unless it is already visible.
func (s scope) declare(name string) (existed bool) {
	if s.lookup(name) {
		return true
	}
	s[len(s)-1].Add(name)
	return false
}
