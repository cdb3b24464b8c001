package xmlmapper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfleong/gobatis/mapping"
)

const sampleMapper = `
<mapper namespace="user">
  <sql id="baseColumns">id, name, age</sql>

  <select id="selectById">
    SELECT <include refid="baseColumns"/> FROM t WHERE id = #{id}
  </select>

  <select id="selectByFilter">
    SELECT * FROM t
    <where>
      <if test="name != null">AND name = #{name}</if>
      <if test="age != null">AND age = #{age}</if>
    </where>
  </select>

  <delete id="deleteByIDs">
    DELETE FROM t WHERE id IN
    <foreach collection="ids" item="i" open="(" separator="," close=")">#{i}</foreach>
  </delete>
</mapper>
`

func TestRegisterXMLIncludeExpansion(t *testing.T) {
	cfg := mapping.NewConfiguration()
	b := NewBuilder(cfg, nil, nil)
	require.NoError(t, b.RegisterXML("user.xml", strings.NewReader(sampleMapper)))

	ms, ok := cfg.GetMappedStatement("user.selectById")
	require.True(t, ok)

	bound, err := ms.SqlSource.GetBoundSQL(map[string]any{"id": 7})
	require.NoError(t, err)
	assert.Contains(t, bound.SQL, "id, name, age")
	assert.Contains(t, bound.SQL, "?")
	require.Len(t, bound.ParameterMappings, 1)
	assert.Equal(t, "id", bound.ParameterMappings[0].Property)
}

func TestRegisterXMLWhereIf(t *testing.T) {
	cfg := mapping.NewConfiguration()
	b := NewBuilder(cfg, nil, nil)
	require.NoError(t, b.RegisterXML("user.xml", strings.NewReader(sampleMapper)))

	ms, ok := cfg.GetMappedStatement("user.selectByFilter")
	require.True(t, ok)

	bound, err := ms.SqlSource.GetBoundSQL(map[string]any{"name": "x", "age": nil})
	require.NoError(t, err)
	assert.Contains(t, bound.SQL, "WHERE name = ?")
	assert.NotContains(t, bound.SQL, "age")
}

func TestRegisterXMLForEach(t *testing.T) {
	cfg := mapping.NewConfiguration()
	b := NewBuilder(cfg, nil, nil)
	require.NoError(t, b.RegisterXML("user.xml", strings.NewReader(sampleMapper)))

	ms, ok := cfg.GetMappedStatement("user.deleteByIDs")
	require.True(t, ok)

	bound, err := ms.SqlSource.GetBoundSQL(map[string]any{"ids": []any{1, 2, 3}})
	require.NoError(t, err)
	assert.Contains(t, bound.SQL, "IN (?,?,?)")
	require.Len(t, bound.ParameterMappings, 3)
}
