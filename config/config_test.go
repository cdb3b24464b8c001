package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfleong/gobatis/mapping"
)

const sampleYAML = `
settings:
  cacheEnabled: false
  autoMappingBehavior: FULL
  defaultStatementTimeout: 5s
environments:
  default: dev
  environments:
    - id: dev
      dataSource:
        driver: sqlite3
        dsn: file::memory:?cache=shared
typeAliases:
  string: string
  int: int64
mappers:
  - resource: mapper/person.xml
`

func TestLoadBytesAppliesDefaultsAndValidates(t *testing.T) {
	loader := NewLoader("yaml")
	doc, err := loader.LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	assert.False(t, doc.Settings.CacheEnabled)
	assert.Equal(t, "FULL", doc.Settings.AutoMappingBehavior)
	assert.Equal(t, 5*time.Second, doc.Settings.DefaultStatementTimeout)
	assert.Equal(t, "SIMPLE", doc.Settings.DefaultExecutorType, "unset fields still pick up their struct-tag default")
	assert.Equal(t, 10, doc.Environments.List[0].DataSource.MaxOpen)
}

func TestLoadBytesRejectsUnknownAutoMappingBehavior(t *testing.T) {
	loader := NewLoader("yaml")
	_, err := loader.LoadBytes([]byte(`
settings:
  autoMappingBehavior: BOGUS
environments:
  default: dev
  environments:
    - id: dev
      dataSource:
        driver: sqlite3
        dsn: file::memory:
`))
	assert.Error(t, err)
}

func TestApplySettingsTurnsOffAutoMappingDefault(t *testing.T) {
	doc := &Document{}
	doc.setDefault()
	doc.Settings.AutoMappingBehavior = "NONE"

	cfg := mapping.NewConfiguration()
	doc.ApplySettings(cfg)
	assert.False(t, cfg.AutoMappingDefault)
}

func TestResolveTypeAlias(t *testing.T) {
	doc := &Document{TypeAliases: map[string]string{"string": "string"}}
	v, ok := doc.ResolveTypeAlias("String")
	require.True(t, ok)
	assert.Equal(t, "string", v)
}

func TestOpenEnvironmentRejectsUnknownID(t *testing.T) {
	doc := &Document{Environments: Environments{Default: "dev"}}
	_, _, _, err := doc.OpenEnvironment("prod")
	assert.Error(t, err)
}
