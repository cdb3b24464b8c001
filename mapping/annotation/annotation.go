// Package annotation builds MappedStatements from a mapper interface's
// declarative per-method specification. Go has no runtime method
// annotations, so where a JDBC-style mapper recovers @Select/@Options/
// @Results et al. via reflection over annotation values, this package
// has callers build the same information with ordinary Go function
// calls against a MethodSpec instead.
package annotation

import (
	"reflect"

	"github.com/wolfleong/gobatis/dynamicsql"
	"github.com/wolfleong/gobatis/mapping"
	"github.com/wolfleong/gobatis/merr"
)

// StatementAnnotation is the Go equivalent of @Select/@Insert/@Update/
// @Delete, or one of the …Provider variants.
type StatementAnnotation struct {
	Command  mapping.CommandKind
	SQL      string        // raw SQL text, for the non-Provider form
	Provider ProviderSpec  // used when SQL == ""
}

// ProviderSpec is the Go equivalent of @SelectProvider et al.: a factory
// invoked with the caller's arguments to produce SQL text, replacing
// reflective provider-method dispatch.
type ProviderSpec struct {
	Func func(args []any) (string, error)
}

// OptionsAnnotation is the Go equivalent of @Options.
type OptionsAnnotation struct {
	FlushCache      bool
	UseCache        bool
	UseGeneratedKeys bool
	KeyProperty     []string
	KeyColumn       []string
	FetchSize       int
	StatementType   mapping.StatementKind
	ResultSets      []string
}

// ResultSpec is the Go equivalent of one @Result entry.
type ResultSpec struct {
	Property string
	Column   string
	ID       bool
	JavaType reflect.Type
	JdbcType string
	One      string // nested select id for an association (@One)
	Many     string // nested select id for a collection (@Many)
}

// ArgSpec is the Go equivalent of one @Arg entry (@ConstructorArgs).
type ArgSpec struct {
	Column   string
	JavaType reflect.Type
	ID       bool
}

// CaseSpec is the Go equivalent of one @Case entry (@TypeDiscriminator).
type CaseSpec struct {
	Value     string
	ResultMap string
}

// DiscriminatorSpec is the Go equivalent of @TypeDiscriminator.
type DiscriminatorSpec struct {
	Column string
	Cases  []CaseSpec
}

// SelectKeySpec is the Go equivalent of @SelectKey.
type SelectKeySpec struct {
	Statement     StatementAnnotation
	KeyProperty   []string
	KeyColumn     []string
	Before        bool
	ResultType    reflect.Type
}

// MethodSpec gathers every declarative annotation for one mapper method.
type MethodSpec struct {
	Statement     StatementAnnotation
	Options       *OptionsAnnotation
	Results       []ResultSpec
	AutoMapping   *bool
	ConstructorArgs []ArgSpec
	Discriminator *DiscriminatorSpec
	SelectKey     *SelectKeySpec
	ResultMapRef  string // @ResultMap("id")
	MapKey        string
	CacheNamespaceRef string
	ResultType    reflect.Type
	ParameterType reflect.Type
}

// Spec is a full mapper-interface declaration: namespace plus one
// MethodSpec per exported method, built by the caller (normally inside a
// Design()-style method on the mapper type).
type Spec struct {
	Namespace    string
	CacheEnabled bool
	Methods      map[string]MethodSpec
}

// Register builds and registers the MappedStatements, inline ResultMaps,
// select-key statements and discriminators declared by spec. It registers
// no namespace Cache (spec.CacheEnabled and CacheNamespaceRef are not
// read), and it has no counterpart of the XML builder's extends or
// include handling. Forward references (a @ResultMap naming an id not yet
// registered) are deferred to cfg's method worklist.
func Register(cfg *mapping.Configuration, spec Spec) error {
	for methodName, ms := range spec.Methods {
		if err := registerMethod(cfg, spec.Namespace, methodName, ms); err != nil {
			return err
		}
	}
	return nil
}

func registerMethod(cfg *mapping.Configuration, namespace, methodName string, ms MethodSpec) error {
	id := mapping.Qualify(namespace, methodName)

	sqlSource, err := buildSqlSource(ms.Statement)
	if err != nil {
		return merr.NewBuilderError(id, "statement", err)
	}

	stmt := &mapping.MappedStatement{
		ID:        id,
		Command:   ms.Statement.Command,
		Statement: mapping.StatementPrepared,
		SqlSource: sqlSource,
		UseCache:  ms.Statement.Command == mapping.CommandSelect,
	}

	if ms.Options != nil {
		stmt.FlushCache = ms.Options.FlushCache
		stmt.UseCache = ms.Options.UseCache
		stmt.FetchSize = ms.Options.FetchSize
		stmt.Statement = ms.Options.StatementType
		stmt.ResultSets = ms.Options.ResultSets
		stmt.KeyProperties = ms.Options.KeyProperty
		stmt.KeyColumns = ms.Options.KeyColumn
		if ms.Options.UseGeneratedKeys {
			stmt.KeyGenerator = mapping.KeyGeneratorJdbc3
		}
	}

	if len(ms.Results) > 0 || len(ms.ConstructorArgs) > 0 {
		rm := buildInlineResultMap(id, ms)
		cfg.AddResultMap(rm)
		stmt.ResultMaps = []*mapping.ResultMap{rm}
	} else if ms.ResultMapRef != "" {
		refID := mapping.Qualify(namespace, ms.ResultMapRef)
		if rm, ok := cfg.GetResultMap(refID); ok {
			stmt.ResultMaps = []*mapping.ResultMap{rm}
		} else {
			cfg.DeferMethod(id, func() error {
				rm, ok := cfg.GetResultMap(refID)
				if !ok {
					return merr.ErrResultMapNotFound
				}
				stmt.ResultMaps = []*mapping.ResultMap{rm}
				return nil
			})
		}
	}

	if ms.SelectKey != nil {
		skSource, err := buildSqlSource(ms.SelectKey.Statement)
		if err != nil {
			return merr.NewBuilderError(id, "selectKey", err)
		}
		sk := mapping.CompileSelectKey(cfg, id, skSource, ms.SelectKey.KeyProperty, ms.SelectKey.KeyColumn, ms.SelectKey.Before)
		stmt.SelectKey = sk
		stmt.KeyGenerator = mapping.KeyGeneratorSelectKey
	}

	cfg.AddStatement(stmt)

	if ms.Discriminator != nil {
		cases := make(map[string]string, len(ms.Discriminator.Cases))
		for _, c := range ms.Discriminator.Cases {
			cases[c.Value] = mapping.Qualify(namespace, c.ResultMap)
		}
		if len(stmt.ResultMaps) == 1 {
			stmt.ResultMaps[0].Discriminator = &mapping.Discriminator{
				Column: ms.Discriminator.Column,
				Cases:  cases,
			}
		}
	}

	return nil
}

func buildSqlSource(stmt StatementAnnotation) (dynamicsql.SqlSource, error) {
	if stmt.SQL != "" {
		return dynamicsql.NewRawSqlSource(stmt.SQL), nil
	}
	if stmt.Provider.Func != nil {
		return &dynamicsql.ProviderSqlSource{Provide: func(parameter any) (string, error) {
			return stmt.Provider.Func([]any{parameter})
		}}, nil
	}
	return nil, merr.ErrNotDynamicSqlSource
}

func buildInlineResultMap(statementID string, ms MethodSpec) *mapping.ResultMap {
	rm := &mapping.ResultMap{
		ID:          statementID + "-Inline",
		Type:        ms.ResultType,
		AutoMapping: ms.AutoMapping,
	}
	for _, arg := range ms.ConstructorArgs {
		flag := mapping.FlagConstructor
		if arg.ID {
			flag |= mapping.FlagID
		}
		rm.Mappings = append(rm.Mappings, mapping.ResultMapping{
			Column:   arg.Column,
			JavaType: arg.JavaType,
			Flags:    flag,
		})
	}
	for _, r := range ms.Results {
		flag := mapping.FlagNone
		if r.ID {
			flag |= mapping.FlagID
		}
		rm.Mappings = append(rm.Mappings, mapping.ResultMapping{
			Property:       r.Property,
			Column:         r.Column,
			JavaType:       r.JavaType,
			JdbcType:       r.JdbcType,
			Flags:          flag,
			NestedSelectID: firstNonEmpty(r.One, r.Many),
		})
	}
	rm.RebuildMappedColumns()
	return rm
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
