// Package server exposes alias issuing and the usage log over a local HTTP API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method-qualified patterns on an [http.ServeMux], so a path
// may carry several methods and an unknown method is answered with 405.
//
// # API
//
// [API] is the caller used by form-filling integrations:
//
//	GET    /health            liveness probe
//	POST   /aliases           {"site": "..."} issues and logs an alias, 201
//	GET    /aliases?domain=   usage log, newest first, optionally filtered by site (q= searches)
//	DELETE /aliases           {"domain","generatedEmail","date"} removes one exact entry
//	POST   /validate          {"email": "..."} re-validates an address
//
// Errors are written as {"error": "..."} with a status derived from the wrapped sentinel in internal/shared.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
