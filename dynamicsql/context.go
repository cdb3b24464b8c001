// Package dynamicsql is the Dynamic SQL Engine: a tree of
// SqlNodes that, given a parameter context, assembles the final
// parameterised SQL string plus an ordered list of parameter bindings.
package dynamicsql

import (
	"strings"
	"sync/atomic"
)

// Context is the mutable assembly context threaded through SqlNode.Apply.
// It accumulates SQL text, additional bindings introduced by <bind> and
// <foreach>, and a monotonic counter so nested <foreach> loops can
// disambiguate their placeholder bindings.
type Context struct {
	Parameter any // the caller-supplied parameter object/map

	sql      strings.Builder
	bindings map[string]any

	counter atomic.Int64
}

// NewContext builds an assembly context rooted at the given parameter.
func NewContext(parameter any) *Context {
	return &Context{Parameter: parameter, bindings: make(map[string]any)}
}

// AppendSQL appends a raw SQL fragment.
func (c *Context) AppendSQL(s string) {
	if s == "" {
		return
	}
	if c.sql.Len() > 0 {
		c.sql.WriteByte(' ')
	}
	c.sql.WriteString(s)
}

// SQL returns the accumulated SQL text so far.
func (c *Context) SQL() string { return c.sql.String() }

// Bind stores value under name in the additional-bindings scope, visible
// to subsequent expression evaluation and #{}/${} substitution.
func (c *Context) Bind(name string, value any) { c.bindings[name] = value }

// Unbind removes name from the additional-bindings scope (ForEach removes
// its item/index bindings on exit).
func (c *Context) Unbind(name string) { delete(c.bindings, name) }

// Lookup resolves name first against the additional bindings, then against
// the parameter object/map itself.
func (c *Context) Lookup(name string) (any, bool) {
	if v, ok := c.bindings[name]; ok {
		return v, true
	}
	return lookupInParameter(c.Parameter, name)
}

// Bindings exposes the raw additional-bindings map, e.g. for BoundSql's
// snapshot of loop/let bindings.
func (c *Context) Bindings() map[string]any {
	out := make(map[string]any, len(c.bindings))
	for k, v := range c.bindings {
		out[k] = v
	}
	return out
}

// NextUnique allocates the next uniqueness counter for ForEach, so that
// nested ForEach nodes within one BoundSql never collide.
func (c *Context) NextUnique() int64 { return c.counter.Add(1) - 1 }
