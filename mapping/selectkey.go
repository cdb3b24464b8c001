package mapping

import "github.com/wolfleong/gobatis/dynamicsql"

// CompileSelectKey builds the synthetic "<parentID>!selectKey" statement:
// a separate MappedStatement of SELECT kind, wired with its own
// NoKeyGenerator (it must not itself trigger generated-key handling),
// registered into cfg and referenced from the parent statement.
func CompileSelectKey(cfg *Configuration, parentID string, sqlSource dynamicsql.SqlSource, keyProperties, keyColumns []string, executeBefore bool) *SelectKeyStatement {
	id := parentID + "!selectKey"
	ms := &MappedStatement{
		ID:           id,
		Command:      CommandSelect,
		Statement:    StatementPrepared,
		SqlSource:    sqlSource,
		KeyGenerator: KeyGeneratorNone,
	}
	cfg.AddStatement(ms)
	return &SelectKeyStatement{
		Statement:     ms,
		ExecuteBefore: executeBefore,
		KeyProperties: keyProperties,
		KeyColumns:    keyColumns,
	}
}
