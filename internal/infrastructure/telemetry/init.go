package telemetry

import "github.com/google/wire"

// ProviderSet exposes the meter provider and the pipeline meter.
var ProviderSet = wire.NewSet(NewMeterProvider, ProvideMeter)
