package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterDBTracing attaches the otelgorm plugin so datastore operations
// show up as spans under the request trace. Query variables are excluded
// from span attributes; order payloads may carry customer references.
func RegisterDBTracing(db *gorm.DB, enabled bool, logger *zap.Logger) error {
	if !enabled {
		logger.Debug("database tracing disabled")
		return nil
	}

	plugin := otelgorm.NewPlugin(
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return err
	}

	logger.Info("database tracing enabled")
	return nil
}
