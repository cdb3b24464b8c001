package dynamicsql

import (
	"fmt"
	"strings"
)

// ForEach implements the <foreach> semantics from: evaluate
// Collection to an iterable, emit Open/Separator/Close around one
// application of Child per element, and rewrite every #{item...} (and
// #{index...}) reference produced by that application to a uniquely
// suffixed binding name so each iteration gets a distinct placeholder.
type ForEach struct {
	Collection     string
	Item, IndexVar string // binding names, default "item"/"index" if empty
	Open, Sep, Close string
	Child          Node
}

func (n *ForEach) Apply(ctx *Context) bool {
	items, err := EvalIterable(n.Collection, ctx)
	if err != nil || len(items) == 0 {
		return false
	}
	itemName := n.Item
	if itemName == "" {
		itemName = "item"
	}
	indexName := n.IndexVar
	if indexName == "" {
		indexName = "index"
	}

	var out strings.Builder
	out.WriteString(n.Open)
	for i, it := range items {
		u := ctx.NextUnique()
		uniqueItem := fmt.Sprintf("__frch_%s_%d", itemName, u)
		uniqueIndex := fmt.Sprintf("__frch_%s_%d", indexName, u)

		ctx.Bind(itemName, it.Value)
		ctx.Bind(uniqueItem, it.Value)
		ctx.Bind(indexName, it.Index)
		ctx.Bind(uniqueIndex, it.Index)

		scratch := &Context{Parameter: ctx.Parameter, bindings: ctx.bindings}
		n.Child.Apply(scratch)
		rewritten := rewritePlaceholderNames(scratch.SQL(), map[string]string{
			itemName:  uniqueItem,
			indexName: uniqueIndex,
		})

		if i > 0 {
			out.WriteString(n.Sep)
		}
		out.WriteString(rewritten)

		ctx.Unbind(itemName)
		ctx.Unbind(indexName)
	}
	out.WriteString(n.Close)
	ctx.AppendSQL(out.String())
	return true
}

// rewritePlaceholderNames rewrites the leading identifier of every #{...}
// expression that exactly matches a key in rename to its replacement,
// preserving any trailing `:jdbcType`/`,option=value`/`[index]`/`.path`
// suffix.
func rewritePlaceholderNames(text string, rename map[string]string) string {
	return scanPlaceholders(text, "#{", "}", func(expr string) string {
		name, rest := splitIdentHead(expr)
		if repl, ok := rename[name]; ok {
			return "#{" + repl + rest + "}"
		}
		return "#{" + expr + "}"
	})
}

func splitIdentHead(expr string) (head, rest string) {
	i := 0
	for i < len(expr) && isIdentChar(expr[i]) && expr[i] != '.' && expr[i] != '[' {
		i++
	}
	return expr[:i], expr[i:]
}
