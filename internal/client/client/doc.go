// Package client talks to the gophid HTTP API.
//
// HTTPClient wraps every account operation: signup, verification, login,
// profile reads and updates, logout and avatar upload. After a successful
// Login it keeps the session token and sends it as a bearer token on the
// authenticated calls.
//
// # Error Handling
//
// Transport failures are reported as ErrUnavailable. Non-2xx answers become
// *APIError carrying the status code and the server's message; a 401 also
// matches ErrUnauthorized with errors.Is.
package client
