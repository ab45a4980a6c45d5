// Package cache defines the disk-backed stores used by the resolver: the
// local cache root that mirrors the remote path hierarchy verbatim, and the
// read-only overlays rooted at each mod's files directory. Writes go through
// a temp file + rename so readers never observe a half-written resource, and
// AsyncWriter lets the resolver persist remote results without blocking the
// response.
package cache
