package api

import (
	"go.uber.org/fx"
)

// Module provides the API client dependencies
var Module = fx.Options(
	fx.Provide(
		NewClient,
		fx.Annotate(
			NewXProvider,
			fx.As(new(Provider)),
		),
	),
)
