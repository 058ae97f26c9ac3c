// Package catalog reads and edits the dbt YAML catalogs that describe sources and models.
package catalog

// DefaultVersion is the dbt properties file version written to new catalogs.
const DefaultVersion = 2

// SourceCatalog is a dbt sources file holding source groups in order.
type SourceCatalog struct {
	Version int            `yaml:"version"`
	Sources []SourceGroup  `yaml:"sources"`
	Extra   map[string]any `yaml:",inline"`
}

// SourceGroup is one named source with its tables.
type SourceGroup struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Database    string         `yaml:"database,omitempty"`
	Schema      string         `yaml:"schema,omitempty"`
	Tables      []Table        `yaml:"tables"`
	Extra       map[string]any `yaml:",inline"`
}

// Table is a source table, usually backed by an external parquet location.
type Table struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	External    *External      `yaml:"external,omitempty"`
	Columns     []Column       `yaml:"columns,omitempty"`
	Extra       map[string]any `yaml:",inline"`
}

// External points a source table at files in the data lake.
type External struct {
	Location string         `yaml:"location"`
	Options  map[string]any `yaml:"options,omitempty"`
	Extra    map[string]any `yaml:",inline"`
}

// Column describes a table or model column.
type Column struct {
	Name        string         `yaml:"name"`
	DataType    string         `yaml:"data_type,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Tests       []any          `yaml:"tests,omitempty"`
	Extra       map[string]any `yaml:",inline"`
}

// ModelCatalog is a dbt properties file holding model definitions in order.
type ModelCatalog struct {
	Version int            `yaml:"version"`
	Models  []Model        `yaml:"models"`
	Extra   map[string]any `yaml:",inline"`
}

// Model is one model definition together with its column tests.
type Model struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Config      map[string]any `yaml:"config,omitempty"`
	Columns     []Column       `yaml:"columns,omitempty"`
	Extra       map[string]any `yaml:",inline"`
}
