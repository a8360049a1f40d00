// Package session manages chunked recording sessions.
// A client opens a session, uploads independently decodable chunks by index and
// finalizes it, which reassembles the chunks and runs them through the pipeline.
// Sessions are namespaced by an opaque owner id and expire after inactivity.
package session
