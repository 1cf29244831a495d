package common

// AuthorizationHeaderName is the HTTP header carrying the session token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme prefixes the session token inside AuthorizationHeaderName.
const BearerScheme = "Bearer"

// AvatarMaxBytes is the ceiling for uploaded avatar files (2 MiB).
const AvatarMaxBytes = 2 << 20
