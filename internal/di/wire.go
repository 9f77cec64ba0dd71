//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"menueditor-backend/internal/config"
)

// InitializeContainer wires the HTTP service. The cleanup function releases
// the watcher, the content index and the tracer, and flushes the logger.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}

// InitializeTools wires the operator CLI.
func InitializeTools(ctx context.Context, cfg *config.Config) (*Tools, func(), error) {
	wire.Build(ToolSet)
	return nil, nil, nil
}
