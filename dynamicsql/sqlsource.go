package dynamicsql

import "github.com/wolfleong/gobatis/merr"

// SqlSource is theSqlSource sum type. GetBoundSQL pattern-matches
// on the concrete implementation.
type SqlSource interface {
	GetBoundSQL(parameter any) (*BoundSQL, error)
}

// StaticSqlSource is pre-computed SQL text with a fixed ParameterMapping
// list - no further assembly happens per call.
type StaticSqlSource struct {
	SQL      string
	Mappings []ParameterMapping
}

func (s *StaticSqlSource) GetBoundSQL(any) (*BoundSQL, error) {
	return &BoundSQL{SQL: s.SQL, ParameterMappings: s.Mappings}, nil
}

// RawSqlSource is static text whose ${...} substitutions were already
// resolved at build time, before the SqlSource is cached. Only
// the #{...} placeholder pass remains, and since the text has no
// <if>/<foreach>/etc. NewRawSqlSource runs it once and stores the result
// as a StaticSqlSource that every call returns.
type RawSqlSource struct {
	Text    string
	static  *StaticSqlSource
}

func NewRawSqlSource(text string) *RawSqlSource {
	bound := bindPlaceholders(text, NewContext(nil))
	return &RawSqlSource{
		Text: text,
		static: &StaticSqlSource{SQL: bound.SQL, Mappings: bound.ParameterMappings},
	}
}

func (s *RawSqlSource) GetBoundSQL(any) (*BoundSQL, error) {
	return s.static.GetBoundSQL(nil)
}

// DynamicSqlSource owns a tree of SqlNodes and produces a new bound SQL on
// every call.
type DynamicSqlSource struct {
	Root Node
}

func (s *DynamicSqlSource) GetBoundSQL(parameter any) (*BoundSQL, error) {
	if s.Root == nil {
		return nil, merr.Wrap(merr.ErrNotDynamicSqlSource, "dynamic sql source has no root node")
	}
	return Resolve(s.Root, parameter), nil
}

// ProviderFunc is the reflective handle a ProviderSqlSource invokes to
// obtain raw SQL text; the actual
// reflective method lookup lives in mapping/annotation, this is just the
// resolved callable.
type ProviderFunc func(parameter any) (string, error)

// ProviderSqlSource invokes an external user-supplied method to obtain SQL
// text, then delegates to a DynamicSqlSource-style parse of the result
// (the returned text may itself contain #{...}/${...}).
type ProviderSqlSource struct {
	Provide ProviderFunc
}

func (s *ProviderSqlSource) GetBoundSQL(parameter any) (*BoundSQL, error) {
	text, err := s.Provide(parameter)
	if err != nil {
		return nil, merr.Wrap(err, "sql provider invocation failed")
	}
	ctx := NewContext(parameter)
	(&TextWithSubst{Text: text}).Apply(ctx)
	return bindPlaceholders(ctx.SQL(), ctx), nil
}
