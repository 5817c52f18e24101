package render

type scope []map[string]any // a stack of variable scopes

// push creates a new scope
func (s *scope) push() {
	*s = append(*s, make(map[string]any))
}

// pop discards the last scope pushed.
func (s *scope) pop() {
	*s = (*s)[:len(*s)-1]
}

// set adds a new binding to the deepest scope
func (s scope) set(k string, v any) {
	s[len(s)-1][k] = v
}

// assign updates the nearest existing binding of k, or adds one to the
// deepest scope.
func (s scope) assign(k string, v any) {
	for i := len(s) - 1; i >= 0; i-- {
		if _, ok := s[i][k]; ok {
			s[i][k] = v
			return
		}
	}
	s.set(k, v)
}

// lookup checks the variable scopes, deepest out, for the given key
func (s scope) lookup(k string) any {
	for i := range s {
		var elem = s[len(s)-i-1]
		if val, ok := elem[k]; ok {
			return val
		}
	}
	return nil
}
