// Package dataload mediates all fetches of structured content for a
// content-driven client: JSON documents, plain text, and binary blobs.
//
// A Loader resolves each resource in two tiers. An overrides configuration
// may redirect a resource to an external URL, fetched through an indirection
// (proxy) endpoint; when no override applies, or the external attempt fails,
// the resource is fetched from local static hosting. Results are cached per
// resource and response kind.
//
// # Request Deduplication
//
// Concurrent loads of the same resource coalesce onto a single in-flight
// fetch sequence. All callers observe the same final value or error. A cache
// hit is served before in-flight state is consulted, and an in-flight load
// is joined before a new one is started.
//
// # Failure Records
//
// When both the external and the local attempt fail, a failure record is
// cached in place of the entry. Later loads of that resource fail fast with
// a distinguishable error and perform no network I/O until the record is
// cleared with ClearCache. This keeps a missing resource from being hammered
// by every consumer that wants it.
//
// # Configuration Bootstrap
//
// The first load waits for a one-time bootstrap: the environment document is
// loaded first, since it names the proxy endpoint and the location of the
// overrides document, then the overrides document itself. Configuration that
// is missing or malformed disables the external tier; local loading always
// remains available.
package dataload
