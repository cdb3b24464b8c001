// Package mapping implements the Mapping Registry & Builder: the immutable,
// process-wide catalog of MappedStatements, ResultMaps, ParameterMaps, and
// namespace Caches, built up by parsing XML mapping documents and/or
// annotated mapper interfaces and resolved to a fixed point via deferred
// worklists.
package mapping

import (
	"time"

	"github.com/wolfleong/gobatis/cachedec"
	"github.com/wolfleong/gobatis/dynamicsql"
)

// CommandKind is the DML kind of a mapped statement.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandSelect
	CommandInsert
	CommandUpdate
	CommandDelete
)

func (k CommandKind) String() string {
	switch k {
	case CommandSelect:
		return "SELECT"
	case CommandInsert:
		return "INSERT"
	case CommandUpdate:
		return "UPDATE"
	case CommandDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// StatementKind distinguishes how the driver should prepare the statement.
type StatementKind int

const (
	StatementStatement StatementKind = iota
	StatementPrepared
	StatementCallable
)

// KeyGeneratorKind selects the generated-key strategy a MappedStatement uses.
type KeyGeneratorKind int

const (
	KeyGeneratorNone KeyGeneratorKind = iota
	KeyGeneratorJdbc3
	KeyGeneratorSelectKey
)

// MappedStatement is the immutable, fully-resolved record of one statement,
// keyed by "<namespace>.<id>".
type MappedStatement struct {
	ID            string
	Command       CommandKind
	Statement     StatementKind
	SqlSource     dynamicsql.SqlSource
	ParameterMap  *ParameterMap
	ResultMaps    []*ResultMap
	FlushCache    bool
	UseCache      bool
	FetchSize     int
	Timeout       time.Duration
	KeyGenerator  KeyGeneratorKind
	KeyProperties []string
	KeyColumns    []string
	DatabaseID    string
	Cache         cachedec.Cache // weak reference; owned by Configuration
	ResultSets    []string       // names for multi-result-set statements
	SelectKey     *SelectKeyStatement
}

// SelectKeyStatement is the synthetic "<parentId>!selectKey" statement
// compiled from a <selectKey> declaration.
type SelectKeyStatement struct {
	Statement    *MappedStatement
	ExecuteBefore bool
	KeyProperties []string
	KeyColumns    []string
}

// ParameterMap is a named, explicit set of ParameterMappings (legacy XML
// <parameterMap>; most statements instead derive mappings inline from
// placeholder syntax via dynamicsql).
type ParameterMap struct {
	ID       string
	Type     string
	Mappings []dynamicsql.ParameterMapping
}
