package exec

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/stoewer/go-strcase"
	"github.com/wolfleong/gobatis/driverx"
	"github.com/wolfleong/gobatis/mapping"
	"github.com/wolfleong/gobatis/proxyx"
	"github.com/wolfleong/gobatis/reflectx"
)

// columnMeta is the per-ResultSet column metadata cache: column names
// plus a per-column mapped/unmapped partition, computed once per query
// and reused across every row it returns.
type columnMeta struct {
	names   []string
	mapped  map[string]bool
}

// nestedKeyMemo collapses rows that project to the same parent, keyed by
// a synthetic row-key built from ID-flagged column values. Cleared
// between ResultSet scans unless the caller opts into resultOrdered
// semantics (not modeled: this engine keeps one memo per call to
// handleResultSet, which is the common case).
type nestedKeyMemo map[string]any

// Projector turns driver Rows into result objects per a ResultMap chain.
// It is a standalone type rather than a BaseExecutor method so
// Simple/Batch/Caching share one implementation regardless of how they
// obtained rows.
type Projector struct {
	Cfg          *mapping.Configuration
	ProxyFactory proxyx.Factory
	Exec         Executor // used to run nested-select associations/collections
}

func NewProjector(cfg *mapping.Configuration, exec Executor) *Projector {
	return &Projector{Cfg: cfg, ProxyFactory: proxyx.DefaultFactory{}, Exec: exec}
}

// Project reads every row of rows against resultMap, returning the
// projected objects (or forwarding each to handler if non-nil).
func (p *Projector) Project(ctx projectContext, rows driverx.Rows, resultMap *mapping.ResultMap, handler ResultHandler) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	meta := &columnMeta{names: cols, mapped: make(map[string]bool, len(cols))}
	for _, c := range cols {
		_, ok := resultMap.MappedColumns[strings.ToUpper(c)]
		meta.mapped[strings.ToUpper(c)] = ok
	}

	memo := make(nestedKeyMemo)
	var out []any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return out, err
		}
		rowValues := make(map[string]any, len(cols))
		for i, c := range cols {
			rowValues[strings.ToUpper(c)] = raw[i]
		}

		effective, err := p.resolveDiscriminator(resultMap, rowValues)
		if err != nil {
			return out, err
		}

		key := rowIdentityKey(effective, rowValues)
		if key != "" {
			if existing, ok := memo[key]; ok {
				p.mergeIntoParent(existing, effective, rowValues, ctx)
				continue
			}
		}

		obj, err := p.buildRow(effective, rowValues, meta, ctx)
		if err != nil {
			return out, err
		}
		if key != "" {
			memo[key] = obj
		}

		if handler != nil {
			handler(obj)
		} else {
			out = append(out, obj)
		}
	}
	return out, rows.Err()
}

// projectContext threads per-call state (the caller's context.Context, the
// parent CacheKey for nested deferred-load keys) through projection
// without widening Projector's method signatures for every future
// addition.
type projectContext struct {
	ctx      context.Context
	ctxValue any
}

// context returns the caller's context, falling back to Background for a
// zero-value projectContext (e.g. tests that construct one directly).
func (c projectContext) context() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

func (p *Projector) resolveDiscriminator(rm *mapping.ResultMap, row map[string]any) (*mapping.ResultMap, error) {
	if rm.Discriminator == nil {
		return rm, nil
	}
	val := toDisplayString(row[strings.ToUpper(rm.Discriminator.Column)])
	return mapping.ResolveDiscriminatorChain(p.Cfg, rm, val)
}

func rowIdentityKey(rm *mapping.ResultMap, row map[string]any) string {
	var ids []mapping.ResultMapping
	for _, m := range rm.Mappings {
		if m.Flags.Has(mapping.FlagID) {
			ids = append(ids, m)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(rm.ID)
	for _, m := range ids {
		sb.WriteByte('|')
		sb.WriteString(toDisplayString(row[strings.ToUpper(m.Column)]))
	}
	return sb.String()
}

func (p *Projector) buildRow(rm *mapping.ResultMap, row map[string]any, meta *columnMeta, ctx projectContext) (any, error) {
	var obj any
	var err error

	if ctors := constructorMappings(rm); len(ctors) > 0 {
		args := make([]any, len(ctors))
		for i, m := range ctors {
			args[i] = row[strings.ToUpper(m.Column)]
		}
		obj, err = reflectx.ConstructWithArgs(rm.Type, args)
	} else {
		obj, err = reflectx.DefaultConstruct(rm.Type)
	}
	if err != nil {
		return nil, err
	}

	if autoMap(rm) {
		for col, v := range row {
			if meta.mapped[col] {
				continue
			}
			prop := strcase.LowerCamelCase(strings.ToLower(col))
			_ = reflectx.WriteValue(obj, prop, v)
		}
	}

	loaders := make(map[string]proxyx.Loader)
	for _, m := range rm.Mappings {
		if m.Flags.Has(mapping.FlagConstructor) {
			continue
		}
		if m.NestedResultMap != "" {
			nested, ok := p.Cfg.GetResultMap(m.NestedResultMap)
			if ok {
				nestedObj, err := p.buildRow(nested, row, meta, ctx)
				if err == nil {
					_ = reflectx.WriteValue(obj, m.Property, nestedObj)
				}
			}
			continue
		}
		if m.NestedSelectID != "" {
			if m.Lazy {
				property := m.Property
				selectID := m.NestedSelectID
				param := row[strings.ToUpper(m.Column)]
				nestedCtx := ctx.context()
				loaders[property] = func() (any, error) {
					ms, ok := p.Cfg.GetMappedStatement(selectID)
					if !ok {
						return nil, nil
					}
					return p.Exec.Query(nestedCtx, ms, param, nil)
				}
				continue
			}
			ms, ok := p.Cfg.GetMappedStatement(m.NestedSelectID)
			if ok {
				param := row[strings.ToUpper(m.Column)]
				result, err := p.Exec.Query(ctx.context(), ms, param, nil)
				if err == nil {
					_ = reflectx.WriteValue(obj, m.Property, result)
				}
			}
			continue
		}
		if m.Property != "" {
			_ = reflectx.WriteValue(obj, m.Property, row[strings.ToUpper(m.Column)])
		}
	}

	if len(loaders) > 0 {
		return p.ProxyFactory.Wrap(obj, loaders), nil
	}
	return obj, nil
}

func (p *Projector) mergeIntoParent(parent any, rm *mapping.ResultMap, row map[string]any, ctx projectContext) {
	for _, m := range rm.Mappings {
		if m.NestedResultMap == "" || m.Property == "" {
			continue
		}
		current, err := reflectx.ReadValue(parent, m.Property)
		if err != nil {
			continue
		}
		t := reflect.TypeOf(current)
		if t == nil || !reflectx.IsCollection(t) || t.Kind() != reflect.Slice {
			continue
		}
		nested, ok := p.Cfg.GetResultMap(m.NestedResultMap)
		if !ok {
			continue
		}
		meta := &columnMeta{mapped: boolMappedColumns(rm)}
		child, err := p.buildRow(nested, row, meta, ctx)
		if err != nil {
			continue
		}
		slice := reflect.ValueOf(current)
		slice = reflect.Append(slice, coerceElem(slice.Type().Elem(), child))
		_ = reflectx.WriteValue(parent, m.Property, slice.Interface())
	}
}

func coerceElem(elemType reflect.Type, v any) reflect.Value {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Zero(elemType)
	}
	if rv.Type().AssignableTo(elemType) {
		return rv
	}
	if rv.Type().ConvertibleTo(elemType) {
		return rv.Convert(elemType)
	}
	if elemType.Kind() == reflect.Pointer && rv.Type().AssignableTo(elemType.Elem()) {
		p := reflect.New(elemType.Elem())
		p.Elem().Set(rv)
		return p
	}
	return rv
}

func constructorMappings(rm *mapping.ResultMap) []mapping.ResultMapping {
	var out []mapping.ResultMapping
	for _, m := range rm.Mappings {
		if m.Flags.Has(mapping.FlagConstructor) {
			out = append(out, m)
		}
	}
	return out
}

func boolMappedColumns(rm *mapping.ResultMap) map[string]bool {
	out := make(map[string]bool, len(rm.MappedColumns))
	for c := range rm.MappedColumns {
		out[c] = true
	}
	return out
}

func autoMap(rm *mapping.ResultMap) bool {
	if rm.AutoMapping != nil {
		return *rm.AutoMapping
	}
	return true
}

func toDisplayString(v any) string {
	if v == nil {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
