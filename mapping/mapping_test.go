package mapping

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualify(t *testing.T) {
	assert.Equal(t, "ns.base", Qualify("ns", "base"))
	assert.Equal(t, "other.base", Qualify("ns", "other.base"))
}

func TestValidateLocalID(t *testing.T) {
	assert.NoError(t, ValidateLocalID("base"))
	assert.Error(t, ValidateLocalID("a.b"))
}

func TestMergeResultMapExtendsNoOverlap(t *testing.T) {
	typ := reflect.TypeOf(struct{}{})
	parent := &ResultMap{ID: "P", Type: typ, Mappings: []ResultMapping{
		{Property: "a", Column: "A"},
		{Property: "b", Column: "B"},
	}}
	parent.rebuildMappedColumns()
	child := &ResultMap{ID: "C", Type: typ, Mappings: []ResultMapping{
		{Property: "c", Column: "C"},
	}}

	merged := mergeResultMaps(child, parent)
	var props []string
	for _, m := range merged.Mappings {
		props = append(props, m.Property)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, props)
}

func TestMergeResultMapExtendsOverlapChildWins(t *testing.T) {
	typ := reflect.TypeOf(struct{}{})
	parent := &ResultMap{ID: "P", Type: typ, Mappings: []ResultMapping{
		{Property: "a", Column: "A"},
		{Property: "b", Column: "B"},
	}}
	child := &ResultMap{ID: "C", Type: typ, Mappings: []ResultMapping{
		{Property: "b", Column: "B2"},
		{Property: "c", Column: "C"},
	}}

	merged := mergeResultMaps(child, parent)
	byProp := make(map[string]ResultMapping)
	for _, m := range merged.Mappings {
		byProp[m.Property] = m
	}
	require.Contains(t, byProp, "b")
	assert.Equal(t, "B2", byProp["b"].Column)
}

func TestMergeResultMapConstructorOverridesDropParentConstructors(t *testing.T) {
	typ := reflect.TypeOf(struct{}{})
	parent := &ResultMap{ID: "P", Type: typ, Mappings: []ResultMapping{
		{Property: "a", Column: "A", Flags: FlagConstructor},
		{Property: "b", Column: "B"},
	}}
	child := &ResultMap{ID: "C", Type: typ, Mappings: []ResultMapping{
		{Property: "a", Column: "A2", Flags: FlagConstructor},
	}}

	merged := mergeResultMaps(child, parent)
	ctors := merged.constructorMappings()
	require.Len(t, ctors, 1)
	assert.Equal(t, "A2", ctors[0].Column)
}

func TestResolveDiscriminatorChainGuardsCycles(t *testing.T) {
	cfg := NewConfiguration()
	typ := reflect.TypeOf(struct{}{})

	m := &ResultMap{ID: "M", Type: typ}
	m1 := &ResultMap{ID: "M1", Type: typ}
	m.Discriminator = &Discriminator{Column: "k", Cases: map[string]string{"1": "M1"}}
	m1.Discriminator = &Discriminator{Column: "k", Cases: map[string]string{"2": "M"}}
	cfg.AddResultMap(m)
	cfg.AddResultMap(m1)

	effective, err := ResolveDiscriminatorChain(cfg, m, "1")
	require.NoError(t, err)
	assert.Equal(t, "M1", effective.ID)
}

func TestDrainWorklistsResolvesForwardReference(t *testing.T) {
	cfg := NewConfiguration()
	typ := reflect.TypeOf(struct{}{})

	child := &ResultMap{ID: "C", Type: typ, Mappings: []ResultMapping{{Property: "c", Column: "C"}}}
	cfg.DeferResultMapExtends(child, "P")

	// Parent registers after the child referenced it.
	parent := &ResultMap{ID: "P", Type: typ, Mappings: []ResultMapping{{Property: "a", Column: "A"}}}
	cfg.AddResultMap(parent)

	require.NoError(t, cfg.DrainWorklists())

	merged, ok := cfg.GetResultMap("C")
	require.True(t, ok)
	assert.Len(t, merged.Mappings, 2)
}
