package common

// AuthorizationHeaderName is the only location a bearer token is read from:
// the HTTP header (matched case-insensitively) and the gRPC metadata key
// (always lower-case on the wire).
const AuthorizationHeaderName = "authorization"

// BearerScheme prefixes the token inside the authorization value.
const BearerScheme = "Bearer"

// RequestIDHeaderName carries the correlation id on inbound and outbound
// requests for both transports.
const RequestIDHeaderName = "x-request-id"
