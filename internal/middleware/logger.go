package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one structured access log line per request.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo's error handler settle the status before logging it.
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			fields := logrus.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"route":      c.Path(),
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"ip":         c.RealIP(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
			}
			if uid, ok := c.Get("user_id").(uint64); ok {
				fields["user_id"] = uid
			}
			entry := log.WithFields(fields)
			switch {
			case res.Status >= 500:
				if err != nil {
					entry = entry.WithError(err)
				}
				entry.Error("request")
			case res.Status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}
