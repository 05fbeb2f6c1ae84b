//go:build mssql || all_adapters

package mssql

import (
	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Type:        datasource.TypeMSSQL,
			DisplayName: "Microsoft SQL Server",
			Description: "Load query results from SQL Server 2019+ and Azure SQL",
		},
		Factory: func(cfg datasource.Config) (datasource.TableLoader, error) {
			return NewLoader(cfg)
		},
	})
}
