package observability

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "ideaboard/internal/utils"
)

// HTTPTransport wraps base (or http.DefaultTransport) so every outgoing request gets a client span
func HTTPTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base, otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)))
}

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// GinErrorAttributes marks the request span as failed for 4xx/5xx responses and copies the
// AppError code and severity onto it when a handler attached one with c.Error.
func GinErrorAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		statusCode := c.Writer.Status()
		if statusCode < 400 {
			return
		}
		span := trace.SpanFromContext(c.Request.Context())

		errorMsg := http.StatusText(statusCode)
		severity := contextutils.SeverityWarn
		if statusCode >= 500 {
			severity = contextutils.SeverityError
		}
		for _, ginErr := range c.Errors {
			var appErr *contextutils.AppError
			if errors.As(ginErr.Err, &appErr) {
				errorMsg = appErr.Message
				severity = appErr.Severity
				span.SetAttributes(attribute.String("error.code", string(appErr.Code)))
				break
			}
			errorMsg = ginErr.Error()
		}

		span.RecordError(errors.New(errorMsg))
		span.SetStatus(codes.Error, errorMsg)
		span.SetAttributes(
			attribute.Int("http.status_code", statusCode),
			attribute.String("error.severity", string(severity)),
		)
	}
}
