package dynamicsql

import (
	"reflect"
	"strings"
)

// ParameterMode mirrorsParameterMapping.Mode.
type ParameterMode int

const (
	ModeIn ParameterMode = iota
	ModeOut
	ModeInOut
)

// ParameterMapping is the column-binding descriptor produced by parsing one
// #{...} placeholder.
type ParameterMapping struct {
	Property     string
	GoType       reflect.Type
	JDBCType     string
	Mode         ParameterMode
	TypeHandler  string
	NumericScale int
	ResultMapID  string
	Inline       bool // true when the expression was `(inline-expression)` rather than a bare property path
}

// BoundSQL is a realised SQL string plus its ordered ParameterMapping list
// and a snapshot of bindings introduced during assembly.
type BoundSQL struct {
	SQL              string
	ParameterMappings []ParameterMapping
	AdditionalParams  map[string]any
}

// Resolve runs the SqlNode tree against parameter, then performs the final
// #{...} placeholder pass, turning each occurrence into a positional `?`
// and an accompanying ParameterMapping.
func Resolve(root Node, parameter any) *BoundSQL {
	ctx := NewContext(parameter)
	root.Apply(ctx)
	return bindPlaceholders(ctx.SQL(), ctx)
}

func bindPlaceholders(text string, ctx *Context) *BoundSQL {
	var mappings []ParameterMapping
	sql := scanPlaceholders(text, "#{", "}", func(expr string) string {
		mappings = append(mappings, parsePlaceholderExpr(expr, ctx))
		return "?"
	})
	return &BoundSQL{SQL: sql, ParameterMappings: mappings, AdditionalParams: ctx.Bindings()}
}

func parsePlaceholderExpr(expr string, ctx *Context) ParameterMapping {
	expr = strings.TrimSpace(expr)
	pm := ParameterMapping{}

	body := expr
	if strings.HasPrefix(body, "(") {
		// inline-expression form: `(expr)[,name=value,...]`
		depth := 0
		end := -1
		for i, c := range body {
			switch c {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					end = i
				}
			}
			if end >= 0 {
				break
			}
		}
		if end > 0 {
			pm.Property = body[1:end]
			pm.Inline = true
			body = strings.TrimSpace(body[end+1:])
			if strings.HasPrefix(body, ",") {
				body = body[1:]
			} else {
				body = ""
			}
		}
	}

	parts := strings.Split(body, ",")
	if !pm.Inline {
		head := strings.TrimSpace(parts[0])
		parts = parts[1:]
		if idx := strings.Index(head, ":"); idx >= 0 {
			pm.Property = head[:idx]
			pm.JDBCType = head[idx+1:]
		} else {
			pm.Property = head
		}
	}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch key {
		case "jdbcType":
			pm.JDBCType = val
		case "jdbcTypeName":
			pm.JDBCType = val
		case "mode":
			switch strings.ToUpper(val) {
			case "OUT":
				pm.Mode = ModeOut
			case "INOUT":
				pm.Mode = ModeInOut
			default:
				pm.Mode = ModeIn
			}
		case "typeHandler":
			pm.TypeHandler = val
		case "resultMap":
			pm.ResultMapID = val
		case "numericScale":
			pm.NumericScale = atoi(val)
		case "javaType":
			// javaType is informational in a Go port; GoType is resolved
			// below from the additional bindings / parameter reflection.
		}
	}

	if !pm.Inline {
		pm.GoType = resolvePropertyType(pm.Property, ctx)
	}
	return pm
}

// resolvePropertyType resolves the Go type bound to property: first the
// additional-bindings' getter type if defined, else the reflection facade
// on the parameter type.
func resolvePropertyType(property string, ctx *Context) reflect.Type {
	if v, ok := ctx.bindings[property]; ok {
		if v == nil {
			return nil
		}
		return reflect.TypeOf(v)
	}
	v, ok := lookupInParameter(ctx.Parameter, property)
	if !ok || v == nil {
		return nil
	}
	return reflect.TypeOf(v)
}
