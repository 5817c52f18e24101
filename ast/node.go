// Package ast contains definitions for the in-memory representation of a
// compiled template: the statements emitted by tag compilers and the
// expressions they operate on.
package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Node represents any singular piece of a template.  For example, a
// sequence of raw text or a for loop.
type Node interface {
	String() string // String returns the template source representation of this node.
	Position() Pos  // byte position of start of node in full original input string
}

// ParentNode is any Node that has descendent nodes.  For example, the Children
// of a AddNode are the two nodes that should be added.
type ParentNode interface {
	Node
	Children() []Node
}

// Pos represents a byte position in the original input text from which this
// template was parsed.  It is useful to construct helpful error messages.
type Pos int

// Position returns this position.  It is implemented as a method so that Nodes
// may embed a Pos and fulfill this part of the Node interface for free.
func (p Pos) Position() Pos {
	return p
}

// Inspect traverses the tree rooted at node in depth-first order, calling fn
// for each node.  If fn returns false, the children of that node are skipped.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	if parent, ok := node.(ParentNode); ok {
		for _, child := range parent.Children() {
			Inspect(child, fn)
		}
	}
}

// TemplateNode is the root of a compiled template.
type TemplateNode struct {
	Name    string    // name of the template, usually its path
	Text    string    // the full source text
	DataVar string    // name of the per-render data record
	Body    *ListNode // top level statements, writing to OutputVar
}

// OutputVar is the name of the root output accumulator.
const OutputVar = "__output"

// ExportsVar is the name of the exports accumulator.
const ExportsVar = "__exports"

func (n *TemplateNode) Position() Pos {
	return 0
}

func (n *TemplateNode) Children() []Node {
	return []Node{n.Body}
}

func (n *TemplateNode) String() string {
	return n.Body.String()
}

// Statements ----------

// ListNode holds a sequence of statements.
type ListNode struct {
	Pos
	Nodes []Node // The element nodes in lexical order.
}

func (l *ListNode) String() string {
	b := new(bytes.Buffer)
	for _, n := range l.Nodes {
		fmt.Fprint(b, n)
	}
	return b.String()
}

func (l *ListNode) Children() []Node {
	return l.Nodes
}

// RawTextNode appends literal text to the accumulator named Out.
type RawTextNode struct {
	Pos
	Out  string
	Text string
}

func (t *RawTextNode) String() string {
	return t.Text
}

// PrintNode appends the value of an expression to the accumulator named Out.
type PrintNode struct {
	Pos
	Out string
	Arg Node
}

func (n *PrintNode) String() string {
	return "{{ " + n.Arg.String() + " }}"
}

func (n *PrintNode) Children() []Node {
	return []Node{n.Arg}
}

// ForNode iterates over the sequence produced by the iteration adapter for
// List.  If Key is set, entries are (key, value) pairs.
type ForNode struct {
	Pos
	Key   string // first binding of a two-binding loop, or ""
	Value string // the value binding
	List  Node
	Await bool
	Body  *ListNode
}

// WithKeys reports whether the loop binds both a key and a value.
func (n *ForNode) WithKeys() bool {
	return n.Key != ""
}

func (n *ForNode) String() string {
	var expr = "{{ for "
	if n.Await {
		expr += "await "
	}
	if n.Key != "" {
		expr += n.Key + ", "
	}
	return expr + n.Value + " of " + n.List.String() + " }}" + n.Body.String() + "{{ /for }}"
}

func (n *ForNode) Children() []Node {
	return []Node{n.List, n.Body}
}

// IfNode is a chain of conditional branches.  A branch with a nil Cond is the
// else branch and, if present, is last.
type IfNode struct {
	Pos
	Conds []*IfCondNode
}

func (n *IfNode) String() string {
	var expr string
	for i, cond := range n.Conds {
		switch {
		case i == 0:
			expr += "{{ if " + cond.Cond.String() + " }}"
		case cond.Cond != nil:
			expr += "{{ else if " + cond.Cond.String() + " }}"
		default:
			expr += "{{ else }}"
		}
		expr += cond.Body.String()
	}
	return expr + "{{ /if }}"
}

func (n *IfNode) Children() []Node {
	var nodes = make([]Node, len(n.Conds))
	for i, cond := range n.Conds {
		nodes[i] = cond
	}
	return nodes
}

type IfCondNode struct {
	Pos
	Cond Node
	Body *ListNode
}

func (n *IfCondNode) String() string {
	if n.Cond == nil {
		return n.Body.String()
	}
	return n.Cond.String()
}

func (n *IfCondNode) Children() []Node {
	if n.Cond == nil {
		return []Node{n.Body}
	}
	return []Node{n.Cond, n.Body}
}

// ElseNode marks the start of a new branch inside the body of an if tag.  It
// is folded into the enclosing IfNode and never survives compilation.
type ElseNode struct {
	Pos
	Cond Node // nil for a plain else
}

func (n *ElseNode) String() string {
	if n.Cond == nil {
		return "{{ else }}"
	}
	return "{{ else if " + n.Cond.String() + " }}"
}

func (n *ElseNode) Children() []Node {
	if n.Cond == nil {
		return nil
	}
	return []Node{n.Cond}
}

// SetNode mirrors a value into a local binding, the data record and, for
// exports, the exports accumulator.
//
// If Body is set, the tag is in capture mode: Body is rendered into the local
// binding first and Value (usually filters applied to that binding) is then
// evaluated and stored.
type SetNode struct {
	Pos
	Name    string
	Value   Node
	Body    *ListNode
	Declare bool // the local binding is new in the current scope
	Export  bool
}

func (n *SetNode) keyword() string {
	if n.Export {
		return "export"
	}
	return "set"
}

func (n *SetNode) String() string {
	if n.Body != nil {
		return "{{ " + n.keyword() + " " + n.Name + " }}" + n.Body.String() + "{{ /" + n.keyword() + " }}"
	}
	return "{{ " + n.keyword() + " " + n.Name + " = " + n.Value.String() + " }}"
}

func (n *SetNode) Children() []Node {
	if n.Body == nil {
		return []Node{n.Value}
	}
	return []Node{n.Body, n.Value}
}

// LayoutNode renders Body into the accumulator Var and passes Content (Var
// with any filters applied) to another template as its content.  The
// rendered layout is appended to Out.
type LayoutNode struct {
	Pos
	Out      string
	Var      string
	Template Node
	Data     *MapLiteralNode // extra data, may be nil
	Body     *ListNode
	Content  Node
}

func (n *LayoutNode) String() string {
	var expr = "{{ layout " + n.Template.String()
	if n.Data != nil {
		expr += " " + n.Data.String()
	}
	return expr + " }}" + n.Body.String() + "{{ /layout }}"
}

func (n *LayoutNode) Children() []Node {
	if n.Data == nil {
		return []Node{n.Template, n.Body, n.Content}
	}
	return []Node{n.Template, n.Data, n.Body, n.Content}
}

// Values ----------

type NullNode struct {
	Pos
}

func (s *NullNode) String() string {
	return "null"
}

type UndefinedNode struct {
	Pos
}

func (s *UndefinedNode) String() string {
	return "undefined"
}

type BoolNode struct {
	Pos
	True bool
}

func (b *BoolNode) String() string {
	if b.True {
		return "true"
	}
	return "false"
}

type IntNode struct {
	Pos
	Value int64
}

func (n *IntNode) String() string {
	return strconv.FormatInt(n.Value, 10)
}

type FloatNode struct {
	Pos
	Value float64
}

func (n *FloatNode) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

type StringNode struct {
	Pos
	Quoted string // e.g. 'hello\tworld'
	Value  string // e.g. hello	world
}

func (s *StringNode) String() string {
	return s.Quoted
}

// IdentNode is a bare name.  Local is set by the compiler when the name
// refers to a binding declared in an enclosing scope; otherwise the name is
// looked up in the data record at render time.
type IdentNode struct {
	Pos
	Name  string
	Local bool
}

func (n *IdentNode) String() string {
	return n.Name
}

type ListLiteralNode struct {
	Pos
	Items []Node
}

func (n *ListLiteralNode) String() string {
	var expr = "["
	for i, item := range n.Items {
		if i > 0 {
			expr += ", "
		}
		expr += item.String()
	}
	return expr + "]"
}

func (n *ListLiteralNode) Children() []Node {
	return n.Items
}

// MapLiteralNode is an object literal.  Keys and Values are parallel and kept
// in source order.
type MapLiteralNode struct {
	Pos
	Keys   []string
	Values []Node
}

func (n *MapLiteralNode) String() string {
	var items = make([]string, len(n.Keys))
	for i, k := range n.Keys {
		items[i] = k + ": " + n.Values[i].String()
	}
	return "{ " + strings.Join(items, ", ") + " }"
}

func (n *MapLiteralNode) Children() []Node {
	return n.Values
}

// Access ----------

// MemberNode is a property access: Obj.Key or Obj?.Key.
type MemberNode struct {
	Pos
	Obj      Node
	Key      string
	Optional bool
}

func (n *MemberNode) String() string {
	if n.Optional {
		return n.Obj.String() + "?." + n.Key
	}
	return n.Obj.String() + "." + n.Key
}

func (n *MemberNode) Children() []Node {
	return []Node{n.Obj}
}

// IndexNode is a computed access: Obj[Index] or Obj?.[Index].
type IndexNode struct {
	Pos
	Obj      Node
	Index    Node
	Optional bool
}

func (n *IndexNode) String() string {
	if n.Optional {
		return n.Obj.String() + "?.[" + n.Index.String() + "]"
	}
	return n.Obj.String() + "[" + n.Index.String() + "]"
}

func (n *IndexNode) Children() []Node {
	return []Node{n.Obj, n.Index}
}

type CallNode struct {
	Pos
	Fn   Node
	Args []Node
}

func (n *CallNode) String() string {
	var expr = n.Fn.String() + "("
	for i, arg := range n.Args {
		if i > 0 {
			expr += ", "
		}
		expr += arg.String()
	}
	return expr + ")"
}

func (n *CallNode) Children() []Node {
	return append([]Node{n.Fn}, n.Args...)
}

// FilterNode applies the named filter to Arg: Arg |> Name(Args...).
type FilterNode struct {
	Pos
	Name  string
	Arg   Node
	Args  []Node
	Await bool
}

func (n *FilterNode) String() string {
	var expr = n.Arg.String() + " |> "
	if n.Await {
		expr += "await "
	}
	expr += n.Name
	if len(n.Args) > 0 {
		var args = make([]string, len(n.Args))
		for i, arg := range n.Args {
			args[i] = arg.String()
		}
		expr += "(" + strings.Join(args, ", ") + ")"
	}
	return expr
}

func (n *FilterNode) Children() []Node {
	return append([]Node{n.Arg}, n.Args...)
}

// Operators ----------

type NotNode struct {
	Pos
	Arg Node
}

func (n *NotNode) String() string {
	return "!" + n.Arg.String()
}

func (n *NotNode) Children() []Node {
	return []Node{n.Arg}
}

type NegateNode struct {
	Pos
	Arg Node
}

func (n *NegateNode) String() string {
	return "-" + n.Arg.String()
}

func (n *NegateNode) Children() []Node {
	return []Node{n.Arg}
}

type BinaryOpNode struct {
	Name string
	Pos
	Arg1, Arg2 Node
}

func (n *BinaryOpNode) String() string {
	return n.Arg1.String() + " " + n.Name + " " + n.Arg2.String()
}

func (n *BinaryOpNode) Children() []Node {
	return []Node{n.Arg1, n.Arg2}
}

type (
	MulNode         struct{ BinaryOpNode }
	DivNode         struct{ BinaryOpNode }
	ModNode         struct{ BinaryOpNode }
	AddNode         struct{ BinaryOpNode }
	SubNode         struct{ BinaryOpNode }
	EqNode          struct{ BinaryOpNode }
	NotEqNode       struct{ BinaryOpNode }
	StrictEqNode    struct{ BinaryOpNode }
	StrictNotEqNode struct{ BinaryOpNode }
	GtNode          struct{ BinaryOpNode }
	GteNode         struct{ BinaryOpNode }
	LtNode          struct{ BinaryOpNode }
	LteNode         struct{ BinaryOpNode }
	OrNode          struct{ BinaryOpNode }
	AndNode         struct{ BinaryOpNode }
	NullishNode     struct{ BinaryOpNode }
)

type TernNode struct {
	Pos
	Arg1, Arg2, Arg3 Node
}

func (n *TernNode) String() string {
	return n.Arg1.String() + " ? " + n.Arg2.String() + " : " + n.Arg3.String()
}

func (n *TernNode) Children() []Node {
	return []Node{n.Arg1, n.Arg2, n.Arg3}
}
