// Package model defines the record types shared by collections, search and
// persistence.
//
//   - Record: id, vector, validated CV payload and last write time
//   - SearchResult: a Record with its similarity score
//   - RowID: collection-local slot used by the metadata index
package model
