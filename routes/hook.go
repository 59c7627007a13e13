package routes

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"edge-resizer/edge"
	"edge-resizer/metrics"
	"edge-resizer/policy"
)

// RegisterHookRoutes sets up the origin-response trigger route
func RegisterHookRoutes(logger *zap.Logger, app *fiber.App, resizePolicy *policy.Policy, performance *metrics.PerformanceMetrics) {
	app.Post("/origin-response", handleOriginResponse(logger, resizePolicy, performance))
}

//#region handleOriginResponse

// handleOriginResponse runs the resize policy on the first record of a
// trigger event and answers with the resulting response record
func handleOriginResponse(logger *zap.Logger, resizePolicy *policy.Policy, performance *metrics.PerformanceMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		var event edge.Event
		if err := json.Unmarshal(c.Body(), &event); err != nil {
			logger.Error("failed to decode trigger event", zap.Error(err), zap.String("remote_ip", c.IP()))
			return c.Status(fiber.StatusBadRequest).SendString("invalid trigger event")
		}

		if len(event.Records) == 0 || event.Records[0].CF.Response == nil {
			logger.Error("trigger event has no origin response", zap.Int("records", len(event.Records)), zap.String("remote_ip", c.IP()))
			return c.Status(fiber.StatusBadRequest).SendString("trigger event has no origin response")
		}

		record := event.Records[0].CF
		logger.Debug("origin response received", zap.String("uri", record.Request.URI), zap.String("querystring", record.Request.QueryString), zap.Int("status", int(record.Response.Status)))

		response := resizePolicy.Handle(c.UserContext(), record.Request, record.Response)

		if performance != nil {
			performance.RequestDuration.WithLabelValues(strconv.Itoa(int(response.Status))).Observe(time.Since(start).Seconds())
		}

		return c.JSON(response)
	}
}

//#endregion
