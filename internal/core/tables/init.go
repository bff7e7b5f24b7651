// Package tables registers all plan section tables with the core registry.
// Import this package to ensure all tables are registered.
package tables

import "github.com/JonMunkholm/planbook/internal/core"

func init() {
	defs, err := Load()
	if err != nil {
		panic("tables: " + err.Error())
	}
	for _, def := range defs {
		core.Register(def)
	}
}
