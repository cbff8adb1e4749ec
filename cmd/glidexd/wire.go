//go:build wireinject

package main

import (
	"log/slog"

	"github.com/google/wire"

	"github.com/onkernel/glidex/cmd/glidexd/api"
	"github.com/onkernel/glidex/cmd/glidexd/config"
	"github.com/onkernel/glidex/lib/catalog"
	"github.com/onkernel/glidex/lib/lifecycle"
)

// application documents the dependency graph main() wires by hand. It is
// never built: this file carries the +wireinject tag, the same doc-only
// role the teacher's cmd/api/wire.go plays.
type application struct {
	Config  config.Config
	Logger  *slog.Logger
	Catalog *catalog.Store
	Manager *lifecycle.Manager
	Server  *api.Server
}

func initializeApp() (*application, func(), error) {
	panic(wire.Build(
		config.Load,
		catalog.Open,
		lifecycle.NewManager,
		api.NewServer,
		wire.Struct(new(application), "*"),
	))
}
