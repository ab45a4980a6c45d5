// Package server hosts the Fiber HTTP service that fronts the resource
// resolver: request-id middleware, panic recovery, the catch-all resource
// route, and the glue that turns a resolver.Result into a response.
// Diagnostics routes live under /-/ and are registered by the routes package;
// keep exports narrow and accept explicit dependencies.
package server
