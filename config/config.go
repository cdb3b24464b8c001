// Package config loads the top-level configuration document: settings,
// environments, type aliases, type handlers, plugins, and mappers,
// through github.com/spf13/viper. Struct defaults are applied with
// github.com/creasty/defaults and validated with
// github.com/go-playground/validator/v10.
package config

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

func newBytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// Document is the whole register_config payload.
type Document struct {
	Settings     Settings          `mapstructure:"settings"`
	Environments Environments      `mapstructure:"environments"`
	TypeAliases  map[string]string `mapstructure:"typeAliases"`
	TypeHandlers []TypeHandlerSpec `mapstructure:"typeHandlers"`
	Plugins      []PluginSpec      `mapstructure:"plugins"`
	Mappers      []MapperSpec      `mapstructure:"mappers"`
}

// Settings are the engine-wide behavioral switches.
type Settings struct {
	CacheEnabled               bool          `mapstructure:"cacheEnabled" default:"true"`
	LazyLoadingEnabled         bool          `mapstructure:"lazyLoadingEnabled" default:"false"`
	AggressiveLazyLoading      bool          `mapstructure:"aggressiveLazyLoading" default:"false"`
	MultipleResultSetsEnabled  bool          `mapstructure:"multipleResultSetsEnabled" default:"true"`
	UseColumnLabel             bool          `mapstructure:"useColumnLabel" default:"true"`
	AutoMappingBehavior        string        `mapstructure:"autoMappingBehavior" default:"PARTIAL" validate:"oneof=NONE PARTIAL FULL"`
	DefaultExecutorType        string        `mapstructure:"defaultExecutorType" default:"SIMPLE" validate:"oneof=SIMPLE REUSE BATCH"`
	DefaultStatementTimeout    time.Duration `mapstructure:"defaultStatementTimeout" default:"30s"`
	LocalCacheScope            string        `mapstructure:"localCacheScope" default:"SESSION" validate:"oneof=SESSION STATEMENT"`
}

// Environments names the configured data sources and which is active by
// default when a caller doesn't specify one explicitly.
type Environments struct {
	Default string            `mapstructure:"default"`
	List    []EnvironmentSpec `mapstructure:"environments"`
}

// EnvironmentSpec is one named environment's connection parameters.
type EnvironmentSpec struct {
	ID         string         `mapstructure:"id" validate:"required"`
	DataSource DataSourceSpec `mapstructure:"dataSource"`
}

// DataSourceSpec carries enough to open a database/sql.DB via the
// driver named by Driver (e.g. "mysql", "postgres", "sqlite3") and wrap
// it with driverx.NewStdDriver.
type DataSourceSpec struct {
	Driver  string `mapstructure:"driver" validate:"required"`
	DSN     string `mapstructure:"dsn" validate:"required"`
	MaxOpen int    `mapstructure:"maxOpen" default:"10"`
	MaxIdle int    `mapstructure:"maxIdle" default:"5"`
}

// TypeHandlerSpec names a registered reflectx/driverx.TypeConverter
// binding for one Go-type/JDBC-type pair, or a default handler for a
// Go type when JdbcType is empty.
type TypeHandlerSpec struct {
	JavaType string `mapstructure:"javaType"`
	JdbcType string `mapstructure:"jdbcType"`
	Handler  string `mapstructure:"handler" validate:"required"`
}

// PluginSpec names an interceptor to install into the Executor chain,
// with free-form properties passed through to its constructor.
type PluginSpec struct {
	Interceptor string            `mapstructure:"interceptor" validate:"required"`
	Properties  map[string]string `mapstructure:"properties"`
}

// MapperSpec names one mapping source to register: an XML resource path,
// an XML URL, or an annotated mapper interface's type name.
type MapperSpec struct {
	Resource string `mapstructure:"resource"`
	URL      string `mapstructure:"url"`
	Class    string `mapstructure:"class"`
}

// Loader reads a register_config document from a file or an
// already-populated viper instance, applying defaults then validating.
type Loader struct {
	v        *viper.Viper
	validate *validator.Validate
}

// NewLoader builds a Loader over a fresh viper instance with
// AutomaticEnv and "." -> "_" environment-key replacement, so a nested
// key like settings.cacheEnabled can be overridden by SETTINGS_CACHEENABLED.
func NewLoader(configType string) *Loader {
	v := viper.New()
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigType(configType)
	return &Loader{v: v, validate: validator.New()}
}

// LoadFile reads path (yaml/json/toml, whatever configType names) into a
// Document, applying Settings defaults before unmarshaling and each
// environment's data-source defaults after it, so that keys absent from
// the file still get their struct-tag default, then validates the result.
func (l *Loader) LoadFile(path string) (*Document, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return l.finish()
}

// LoadBytes parses an in-memory document, for callers embedding
// configuration rather than reading it from disk.
func (l *Loader) LoadBytes(b []byte) (*Document, error) {
	if err := l.v.ReadConfig(newBytesReader(b)); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return l.finish()
}

func (l *Loader) finish() (*Document, error) {
	doc := &Document{}
	doc.setDefault()
	if err := l.v.Unmarshal(doc); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	for i := range doc.Environments.List {
		_ = defaults.Set(&doc.Environments.List[i].DataSource)
	}
	if err := l.validate.Struct(doc); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return doc, nil
}

// setDefault applies creasty/defaults to every defaultable sub-struct.
// creasty/defaults doesn't parse "default" tags on time.Duration
// fields, so DefaultStatementTimeout is filled in separately.
func (d *Document) setDefault() {
	_ = defaults.Set(&d.Settings)
	if d.Settings.DefaultStatementTimeout == 0 {
		d.Settings.DefaultStatementTimeout = 30 * time.Second
	}
	for i := range d.Environments.List {
		_ = defaults.Set(&d.Environments.List[i].DataSource)
	}
}
