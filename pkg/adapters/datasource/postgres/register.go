//go:build postgres || all_adapters

package postgres

import (
	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Type:        datasource.TypePostgres,
			DisplayName: "PostgreSQL",
			Description: "Load query results from PostgreSQL 12+",
		},
		Factory: func(cfg datasource.Config) (datasource.TableLoader, error) {
			return NewLoader(cfg)
		},
	})
}
