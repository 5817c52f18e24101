package jsgen

import "strconv"

// scope provides a lookup from template variable name to the JS name.
// it is pushed and popped upon entering and leaving blocks.
type scope struct {
	stack  []map[string]string
	n      int
	suffix bool // number the generated names, for function scoped var
}

func (s *scope) push() {
	s.stack = append(s.stack, make(map[string]string))
}

func (s *scope) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

// makevar returns the JS name for a new binding of varname in this scope.
func (s *scope) makevar(varname string) string {
	var genName = varname
	if s.suffix {
		s.n++
		genName = varname + strconv.Itoa(s.n)
	}
	s.stack[len(s.stack)-1][varname] = genName
	return genName
}

// tempvar returns a fresh name for generated code.
func (s *scope) tempvar(prefix string) string {
	s.n++
	return prefix + strconv.Itoa(s.n)
}

func (s *scope) lookup(varname string) string {
	for i := range s.stack {
		val, ok := s.stack[len(s.stack)-i-1][varname]
		if ok {
			return val
		}
	}
	return ""
}
