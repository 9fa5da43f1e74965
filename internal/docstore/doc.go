// Package docstore provides an embedded document store.
//
// Each collection lives in a single file holding one MongoDB Extended JSON
// document per line. Writes only ever append: an update appends the new
// version of a document and a removal appends a tombstone. Loading replays
// the file (the last line for an _id wins) and then compacts it.
//
// Queries are expressed with the Filter types in filter.go and are evaluated
// against every live document, so the store is meant for small data sets.
package docstore
