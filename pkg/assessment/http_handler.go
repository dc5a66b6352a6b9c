package assessment

import (
	"go.uber.org/zap"
)

type HttpHandler struct {
	logger *zap.Logger
	engine *Engine
	sink   ProgressSink
}

// NewHttpHandler serves the engine. Progress of assessments and evidence
// collections started over HTTP goes to sink.
func NewHttpHandler(logger *zap.Logger, engine *Engine, sink ProgressSink) *HttpHandler {
	return &HttpHandler{
		logger: logger.Named("http"),
		engine: engine,
		sink:   sink,
	}
}
