package parser

import "github.com/stacklok/extguard/internal/config"

func extidConfig(validate *bool) config.ExtensionIDConfig {
	cfg := config.Default().ExtensionID
	cfg.Validate = validate
	return cfg
}
