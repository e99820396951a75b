/*
Package middleware provides the HTTP middleware shared by gateway transports.

# Components

RequestIDMiddleware keeps a caller-supplied X-Request-ID or generates a UUID,
stores it in the context (see GetRequestID) and echoes it in the response.
Transports reuse it as the correlation ID of the translated request.

LoggingMiddleware emits one structured slog record per request. Handlers can
enrich it with AddLogField and AddError; the HTTP frontdoor adds the resolved
backend alias and any pipeline error.

TimeoutMiddleware bounds the request context so backends see cancellation.

# Chain Order

 1. RequestIDMiddleware
 2. LoggingMiddleware
 3. Recoverer (chi)
 4. Rate limiting (internal/adapters/policy/ratelimit)
 5. TimeoutMiddleware
 6. OTel instrumentation

Authentication is not a middleware: it is a step of the server pipeline, so
that failures surface as error events like any other step.
*/
package middleware
