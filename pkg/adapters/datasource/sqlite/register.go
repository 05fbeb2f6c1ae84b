//go:build sqlite || all_adapters

package sqlite

import (
	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Type:        datasource.TypeSQLite,
			DisplayName: "SQLite",
			Description: "Load query results from a local SQLite database file",
		},
		Factory: func(cfg datasource.Config) (datasource.TableLoader, error) {
			return NewLoader(cfg)
		},
	})
}
