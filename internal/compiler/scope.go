package compiler

// local is one resolved local-variable slot within a function scope.
type local struct {
	name  string
	depth int
}

// scope tracks the locals visible while compiling one function body (one
// Proto), plus the lexical parent scope needed to resolve upvalues.
type scope struct {
	parent   *scope
	locals   []local
	depth    int
	upvalues []upvalueRef
}

// upvalueRef mirrors bytecode.UpvalueDesc while compiling: it records
// whether slot `index` came from the immediately enclosing function's
// locals or from that function's own upvalue list, so nested closures
// chain correctly.
type upvalueRef struct {
	name            string
	fromParentLocal bool
	index           int
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent}
}

func (s *scope) beginBlock() { s.depth++ }

// endBlock pops all locals declared at the current depth and returns how
// many were popped, so the caller can emit matching OpPop instructions.
func (s *scope) endBlock() int {
	n := 0
	for len(s.locals) > 0 && s.locals[len(s.locals)-1].depth == s.depth {
		s.locals = s.locals[:len(s.locals)-1]
		n++
	}
	s.depth--
	return n
}

func (s *scope) declare(name string) int {
	s.locals = append(s.locals, local{name: name, depth: s.depth})
	return len(s.locals) - 1
}

func (s *scope) resolveLocal(name string) (int, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue finds `name` in an enclosing scope, threading an
// upvalue descriptor through every intermediate function scope so each
// nested closure can capture it.
func (s *scope) resolveUpvalue(name string) (int, bool) {
	if s.parent == nil {
		return 0, false
	}
	if idx, ok := s.parent.resolveLocal(name); ok {
		return s.addUpvalue(name, true, idx), true
	}
	if idx, ok := s.parent.resolveUpvalue(name); ok {
		return s.addUpvalue(name, false, idx), true
	}
	return 0, false
}

func (s *scope) addUpvalue(name string, fromParentLocal bool, index int) int {
	for i, u := range s.upvalues {
		if u.name == name && u.fromParentLocal == fromParentLocal && u.index == index {
			return i
		}
	}
	s.upvalues = append(s.upvalues, upvalueRef{name: name, fromParentLocal: fromParentLocal, index: index})
	return len(s.upvalues) - 1
}
