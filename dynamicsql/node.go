package dynamicsql

import "strings"

// Node is the SqlNode sum type: each variant implements
// Apply, appending SQL fragments and bindings to the mutable Context and
// reporting whether it contributed anything.
type Node interface {
	Apply(ctx *Context) bool
}

// StaticText appends literal text verbatim.
type StaticText struct{ Text string }

func (n *StaticText) Apply(ctx *Context) bool {
	ctx.AppendSQL(n.Text)
	return true
}

// TextWithSubst appends text after expanding ${...} via expression
// evaluation against current bindings.
type TextWithSubst struct{ Text string }

func (n *TextWithSubst) Apply(ctx *Context) bool {
	expanded := scanPlaceholders(n.Text, "${", "}", func(expr string) string {
		v, err := EvalValue(expr, ctx)
		if err != nil || v == nil {
			return ""
		}
		return toDisplayString(v)
	})
	ctx.AppendSQL(expanded)
	return true
}

// Sequence groups children applied in order - the plain composite every
// compound element (mapper body, Trim body, ...) is built from.
type Sequence struct{ Children []Node }

func (n *Sequence) Apply(ctx *Context) bool {
	applied := false
	for _, c := range n.Children {
		if c.Apply(ctx) {
			applied = true
		}
	}
	return applied
}

// If evaluates Test; if true, applies Then.
type If struct {
	Test string
	Then Node
}

func (n *If) Apply(ctx *Context) bool {
	ok, err := EvalBool(n.Test, ctx)
	if err != nil || !ok {
		return false
	}
	return n.Then.Apply(ctx)
}

// When is one arm of Choose.
type When struct {
	Test string
	Then Node
}

// Choose applies the first When whose test is true, else Otherwise.
type Choose struct {
	Whens     []When
	Otherwise Node
}

func (n *Choose) Apply(ctx *Context) bool {
	for _, w := range n.Whens {
		ok, err := EvalBool(w.Test, ctx)
		if err == nil && ok {
			return w.Then.Apply(ctx)
		}
	}
	if n.Otherwise != nil {
		return n.Otherwise.Apply(ctx)
	}
	return false
}

// Trim applies Child into a scratch context, strips configured
// prefix/suffix overrides, then prepends Prefix and appends Suffix.
type Trim struct {
	Child           Node
	Prefix, Suffix  string
	PrefixOverrides []string
	SuffixOverrides []string
}

func (n *Trim) Apply(ctx *Context) bool {
	scratch := &Context{Parameter: ctx.Parameter, bindings: ctx.bindings}
	if !n.Child.Apply(scratch) {
		return false
	}
	body := strings.TrimSpace(scratch.SQL())
	if body == "" {
		return false
	}
	body = trimOverrides(body, n.PrefixOverrides, true)
	body = trimOverrides(body, n.SuffixOverrides, false)
	body = strings.TrimSpace(body)
	if body == "" {
		return false
	}
	var out strings.Builder
	if n.Prefix != "" {
		out.WriteString(n.Prefix)
		out.WriteByte(' ')
	}
	out.WriteString(body)
	if n.Suffix != "" {
		out.WriteByte(' ')
		out.WriteString(n.Suffix)
	}
	ctx.AppendSQL(out.String())
	return true
}

func trimOverrides(body string, overrides []string, fromStart bool) string {
	for {
		trimmed := strings.TrimSpace(body)
		matched := false
		for _, ov := range overrides {
			upper := strings.ToUpper(ov)
			if fromStart {
				if len(trimmed) >= len(upper) && strings.EqualFold(trimmed[:len(upper)], upper) {
					body = trimmed[len(upper):]
					matched = true
					break
				}
			} else {
				if len(trimmed) >= len(upper) && strings.EqualFold(trimmed[len(trimmed)-len(upper):], upper) {
					body = trimmed[:len(trimmed)-len(upper)]
					matched = true
					break
				}
			}
		}
		if !matched {
			return body
		}
	}
}

// NewWhere is the Trim specialisation with prefix "WHERE" and the AND/OR
// prefix-override set.
func NewWhere(child Node) *Trim {
	return &Trim{
		Child:  child,
		Prefix: "WHERE",
		PrefixOverrides: []string{
			"AND ", "OR ", "AND\n", "OR\n", "AND\r", "OR\r", "AND\t", "OR\t",
		},
	}
}

// NewSet is the Trim specialisation with prefix "SET" and a trailing-comma
// suffix override.
func NewSet(child Node) *Trim {
	return &Trim{
		Child:           child,
		Prefix:          "SET",
		SuffixOverrides: []string{","},
	}
}

// VarDecl implements <bind>: evaluate Expr, bind the result under Name.
type VarDecl struct {
	Name string
	Expr string
}

func (n *VarDecl) Apply(ctx *Context) bool {
	v, err := EvalValue(n.Expr, ctx)
	if err != nil {
		return false
	}
	ctx.Bind(n.Name, v)
	return true
}
