package config

import (
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/wolfleong/gobatis/driverx"
	"github.com/wolfleong/gobatis/mapping"
)

// ApplySettings pushes the engine-wide Settings onto cfg, the fields
// mapping.Configuration actually exposes a knob for. The remaining
// Settings (LazyLoadingEnabled, DefaultExecutorType, ...) are read by
// the Session/Executor construction call site rather than stored on
// Configuration, since they govern per-Session behavior, not the
// registry itself.
func (d *Document) ApplySettings(cfg *mapping.Configuration) {
	cfg.AutoMappingDefault = d.Settings.AutoMappingBehavior != "NONE"
}

// OpenEnvironment opens the named environment's data source (or the
// configured default when id is empty) and wraps it in a driverx.Driver,
// the same StdDriver adapter every database/sql-compatible driver
// (go-sql-driver/mysql, lib/pq, mattn/go-sqlite3) can sit behind. The
// returned environment id is the resolved one (not the possibly-empty
// id argument), meant to be handed to exec.Session.SetEnvironmentID so
// every Session opened against this environment produces comparable
// CacheKeys.
func (d *Document) OpenEnvironment(id string) (driverx.Driver, *sql.DB, string, error) {
	spec, err := d.environment(id)
	if err != nil {
		return nil, nil, "", err
	}
	db, err := sql.Open(spec.DataSource.Driver, spec.DataSource.DSN)
	if err != nil {
		return nil, nil, "", errors.Wrapf(err, "opening environment %q", spec.ID)
	}
	db.SetMaxOpenConns(spec.DataSource.MaxOpen)
	db.SetMaxIdleConns(spec.DataSource.MaxIdle)
	driver := driverx.NewStdDriver(db)
	driver.SetTimeout(d.Settings.DefaultStatementTimeout)
	return driver, db, spec.ID, nil
}

func (d *Document) environment(id string) (*EnvironmentSpec, error) {
	if id == "" {
		id = d.Environments.Default
	}
	for i := range d.Environments.List {
		if d.Environments.List[i].ID == id {
			return &d.Environments.List[i], nil
		}
	}
	return nil, errors.Newf("gobatis: no environment named %q configured", id)
}

// ExecutorKind maps the DefaultExecutorType setting onto exec's enum;
// REUSE has no dedicated implementation in this engine (see exec.Session
// doc comment) and aliases SIMPLE.
func (d *Document) ExecutorKind() string {
	return strings.ToUpper(d.Settings.DefaultExecutorType)
}

// ResolveTypeAlias looks up alias (case-insensitive, per the XML
// grammar's javaType="string" convention) against the configured
// TypeAliases map, returning the backing Go type name it stands for.
func (d *Document) ResolveTypeAlias(alias string) (string, bool) {
	v, ok := d.TypeAliases[strings.ToLower(alias)]
	return v, ok
}
