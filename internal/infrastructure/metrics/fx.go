package metrics

import "go.uber.org/fx"

// Module provides the process-wide collectors registered with promauto
var Module = fx.Module("metrics",
	fx.Provide(GetDefaultMetrics),
)
