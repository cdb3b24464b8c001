package dynamicsql_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfleong/gobatis/dynamicsql"
)

func TestBasicPlaceholder(t *testing.T) {
	src := &dynamicsql.DynamicSqlSource{Root: &dynamicsql.Sequence{Children: []dynamicsql.Node{
		&dynamicsql.StaticText{Text: "SELECT * FROM t WHERE id ="},
		&dynamicsql.StaticText{Text: "#{id}"},
	}}}
	bound, err := src.GetBoundSQL(map[string]any{"id": 7})
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t WHERE id = ?", bound.SQL)
	require.Len(t, bound.ParameterMappings, 1)
	require.Equal(t, "id", bound.ParameterMappings[0].Property)
}

func TestIfWhere(t *testing.T) {
	build := func() dynamicsql.Node {
		return dynamicsql.NewWhere(&dynamicsql.Sequence{Children: []dynamicsql.Node{
			&dynamicsql.If{Test: "name != null", Then: &dynamicsql.StaticText{Text: "AND name=#{name}"}},
			&dynamicsql.If{Test: "age != null", Then: &dynamicsql.StaticText{Text: "AND age=#{age}"}},
		}})
	}

	src := &dynamicsql.DynamicSqlSource{Root: &dynamicsql.Sequence{Children: []dynamicsql.Node{
		&dynamicsql.StaticText{Text: "SELECT * FROM t"},
		build(),
	}}}

	bound, err := src.GetBoundSQL(map[string]any{"name": "x", "age": nil})
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t WHERE name=?", bound.SQL)

	bound, err = src.GetBoundSQL(map[string]any{"name": nil, "age": nil})
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t", bound.SQL)

	bound, err = src.GetBoundSQL(map[string]any{"name": "x", "age": 5})
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t WHERE name=? AND age=?", bound.SQL)
}

func TestForEach(t *testing.T) {
	src := &dynamicsql.DynamicSqlSource{Root: &dynamicsql.Sequence{Children: []dynamicsql.Node{
		&dynamicsql.StaticText{Text: "DELETE FROM t WHERE id IN"},
		&dynamicsql.ForEach{
			Collection: "ids", Item: "i",
			Open: "(", Sep: ",", Close: ")",
			Child: &dynamicsql.StaticText{Text: "#{i}"},
		},
	}}}

	bound, err := src.GetBoundSQL(map[string]any{"ids": []any{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, "DELETE FROM t WHERE id IN (?,?,?)", bound.SQL)
	require.Len(t, bound.ParameterMappings, 3)
	require.Equal(t, "__frch_i_0", bound.ParameterMappings[0].Property)
	require.Equal(t, "__frch_i_1", bound.ParameterMappings[1].Property)
	require.Equal(t, "__frch_i_2", bound.ParameterMappings[2].Property)
	require.Equal(t, 1, bound.AdditionalParams["__frch_i_0"])
	require.Equal(t, 2, bound.AdditionalParams["__frch_i_1"])
	require.Equal(t, 3, bound.AdditionalParams["__frch_i_2"])
}

func TestEscapedPlaceholder(t *testing.T) {
	src := &dynamicsql.DynamicSqlSource{Root: &dynamicsql.StaticText{Text: `SELECT '\#{literal}' FROM t`}}
	bound, err := src.GetBoundSQL(nil)
	require.NoError(t, err)
	require.Equal(t, `SELECT '#{literal}' FROM t`, bound.SQL)
	require.Empty(t, bound.ParameterMappings)
}
