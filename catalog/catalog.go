// Package catalog holds the application definitions nanoview ships with.
//
// An application bundles a record schema with the dashboard around it: the
// aggregates it displays, its default sort and page size, and the seed records
// a first run starts from. Built-in applications are embedded YAML files;
// LoadFile reads user-defined ones in the same format.
package catalog

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/arthur-debert/nanoview/nanoview/query"
	"github.com/arthur-debert/nanoview/types"
	"gopkg.in/yaml.v3"
)

//go:embed apps/*.yaml
var appFiles embed.FS

// App is one application definition
type App struct {
	Name        string                `yaml:"name" json:"name"`
	Title       string                `yaml:"title,omitempty" json:"title,omitempty"`
	Description string                `yaml:"description,omitempty" json:"description,omitempty"`
	Schema      *types.Schema         `yaml:"schema" json:"schema"`
	Aggregates  []types.AggregateSpec `yaml:"aggregates,omitempty" json:"aggregates,omitempty"`
	Sort        []types.SortClause    `yaml:"sort,omitempty" json:"sort,omitempty"`
	PageSize    int                   `yaml:"page_size,omitempty" json:"page_size,omitempty"`
	Seeds       []types.Record        `yaml:"seeds,omitempty" json:"seeds,omitempty"`

	engine *query.Engine
}

var (
	builtinOnce sync.Once
	builtins    map[string]*App
	builtinErr  error
)

// Names returns the built-in application names, sorted
func Names() []string {
	apps, err := loadBuiltins()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(apps))
	for name := range apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the built-in application with the given name
func Get(name string) (*App, error) {
	apps, err := loadBuiltins()
	if err != nil {
		return nil, err
	}
	app, ok := apps[name]
	if !ok {
		return nil, fmt.Errorf("unknown app %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return app, nil
}

// LoadFile reads and validates a user-defined application
func LoadFile(filename string) (*App, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read app definition: %w", err)
	}
	app, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return app, nil
}

// Parse decodes and validates an application definition
func Parse(data []byte) (*App, error) {
	var app App
	if err := yaml.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse app definition: %w", err)
	}
	if err := app.init(); err != nil {
		return nil, err
	}
	return &app, nil
}

func loadBuiltins() (map[string]*App, error) {
	builtinOnce.Do(func() {
		entries, err := appFiles.ReadDir("apps")
		if err != nil {
			builtinErr = err
			return
		}
		builtins = make(map[string]*App, len(entries))
		for _, entry := range entries {
			data, err := appFiles.ReadFile(path.Join("apps", entry.Name()))
			if err != nil {
				builtinErr = err
				return
			}
			app, err := Parse(data)
			if err != nil {
				builtinErr = fmt.Errorf("built-in app %s: %w", entry.Name(), err)
				return
			}
			builtins[app.Name] = app
		}
	})
	return builtins, builtinErr
}

// init validates the definition and normalizes the seed records
func (a *App) init() error {
	if a.Name == "" {
		return fmt.Errorf("%w: app name cannot be empty", types.ErrInvalidSchema)
	}
	if a.Schema == nil {
		return fmt.Errorf("%w: app %s has no schema", types.ErrInvalidSchema, a.Name)
	}
	if a.Schema.Name == "" {
		a.Schema.Name = a.Name
	}
	a.Schema.Init()

	engine, err := query.NewEngine(a.Schema, a.Aggregates...)
	if err != nil {
		return fmt.Errorf("app %s: %w", a.Name, err)
	}
	a.engine = engine

	for _, clause := range a.Sort {
		if _, err := a.Schema.MustField(clause.Field); err != nil {
			return fmt.Errorf("app %s: sort: %w", a.Name, err)
		}
	}
	if a.PageSize < 0 {
		return fmt.Errorf("%w: app %s: page_size cannot be negative", types.ErrInvalidPage, a.Name)
	}

	seen := make(map[string]bool, len(a.Seeds))
	for i, seed := range a.Seeds {
		rec, err := a.Schema.NormalizeRecord(seed)
		if err != nil {
			return fmt.Errorf("app %s: seed %d: %w", a.Name, i, err)
		}
		rec = a.Schema.ApplyDefaults(rec)
		if err := a.Schema.Validate(rec); err != nil {
			return fmt.Errorf("app %s: seed %d: %w", a.Name, i, err)
		}
		id := rec.ID(a.Schema.IDField)
		if seen[id] {
			return fmt.Errorf("app %s: seed %d: %w: %s", a.Name, i, types.ErrDuplicateID, id)
		}
		seen[id] = true
		a.Seeds[i] = rec
	}
	return nil
}

// Engine returns the view engine for the app's schema and aggregates
func (a *App) Engine() *query.Engine {
	return a.engine
}

// SeedRecords returns copies of the seed records
func (a *App) SeedRecords() []types.Record {
	out := make([]types.Record, len(a.Seeds))
	for i, rec := range a.Seeds {
		out[i] = rec.Clone()
	}
	return out
}

// DefaultParams returns view parameters with the app's default sort and
// first page
func (a *App) DefaultParams() types.ViewParams {
	params := types.NewViewParams()
	params.Sort = append([]types.SortClause(nil), a.Sort...)
	if a.PageSize > 0 {
		params.Page = types.Page{Index: 1, Size: a.PageSize}
	}
	return params
}
