package expr

import (
	"fmt"
	"regexp"
	"strings"
)

// Node is a validation expression AST node. The concrete types are Literal,
// VarRef, Call, And, Or, Not and Comparison.
type Node interface {
	fmt.Stringer
	node()
}

// Literal is a constant string or number.
type Literal struct {
	Value Value
}

// VarRef names a bound parameter, written $name$, '$name$' or name.
type VarRef struct {
	Name string
}

// Call invokes a built-in predicate or function.
type Call struct {
	Name string
	Args []Node
	// re holds match()'s pattern when it is a literal, compiled at parse time.
	re *regexp.Regexp
}

type And struct {
	Left, Right Node
}

type Or struct {
	Left, Right Node
}

type Not struct {
	X Node
}

// Comparison is one of == = != < <= > >=.
type Comparison struct {
	Op          string
	Left, Right Node
}

func (*Literal) node()    {}
func (*VarRef) node()     {}
func (*Call) node()       {}
func (*And) node()        {}
func (*Or) node()         {}
func (*Not) node()        {}
func (*Comparison) node() {}

func (n *Literal) String() string {
	if n.Value.Kind == KindString {
		return fmt.Sprintf("%q", n.Value.Str)
	}
	return n.Value.Text()
}

func (n *VarRef) String() string { return "$" + n.Name + "$" }

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}

func (n *And) String() string { return "(" + n.Left.String() + " AND " + n.Right.String() + ")" }
func (n *Or) String() string  { return "(" + n.Left.String() + " OR " + n.Right.String() + ")" }
func (n *Not) String() string { return "NOT " + n.X.String() }

func (n *Comparison) String() string {
	return n.Left.String() + " " + n.Op + " " + n.Right.String()
}

// Clause is one predicate with its optional validate() message.
type Clause struct {
	Pred    Node
	Message string
}

// Program is a parsed validation string: one or more clauses, all of which
// must hold.
type Program struct {
	Source  string
	Clauses []Clause
}

// Vars returns the distinct variable names the program references.
func (p *Program) Vars() []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *VarRef:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *Call:
			for _, a := range n.Args {
				walk(a)
			}
		case *And:
			walk(n.Left)
			walk(n.Right)
		case *Or:
			walk(n.Left)
			walk(n.Right)
		case *Not:
			walk(n.X)
		case *Comparison:
			walk(n.Left)
			walk(n.Right)
		}
	}
	for _, c := range p.Clauses {
		walk(c.Pred)
	}
	return names
}
