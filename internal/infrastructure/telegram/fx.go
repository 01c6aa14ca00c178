package telegram

import "go.uber.org/fx"

// Module provides the protocol client factory for fx DI
var Module = fx.Module("telegram",
	fx.Provide(NewFactory),
)
