package constants

import "time"

const (
	DefaultBaseURL     = "https://stitch.mongodb.com"
	DefaultServiceName = "mongodb-atlas"
	DefaultTimeout     = 30 * time.Second

	RequestIDLength = 16
	RequestIDHeader = "X-Request-ID"
)

// Client API routes, relative to the base URL.
const (
	RouteLocation     = "/api/client/v2.0/app/%s/location"
	RouteLogin        = "/api/client/v2.0/app/%s/auth/providers/%s/login"
	RouteFunctionCall = "/api/client/v2.0/app/%s/functions/call"
	RouteSession      = "/api/client/v2.0/auth/session"
)

// Error codes the backend reports in the `error_code` field.
const (
	CodeFunctionNotFound   = "FunctionNotFound"
	CodeFunctionExecution  = "FunctionExecutionError"
	CodeInvalidSession     = "InvalidSession"
	CodeInvalidCredentials = "InvalidPassword"
	CodeAuthProviderNotSet = "AuthProviderNotFound"
	CodeAppNotFound        = "AppNotFound"
	CodeMongoDBError       = "MongoDBError"
	CodeServiceNotFound    = "ServiceNotFound"
	CodeBadRequest         = "BadRequest"
)
