package credentials

import (
	"go.uber.org/fx"

	"github.com/postline/xpost/internal/config"
)

// Module provides the credential store dependencies
var Module = fx.Options(
	fx.Provide(
		func(cfg *config.Config) *FileStore {
			return NewFileStore(cfg.CredentialsFile)
		},
	),
)
