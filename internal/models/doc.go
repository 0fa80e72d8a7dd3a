// Package models defines the domain entities shared by the catalog fetcher, the reconciler and the pass history.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects: lightweight, immutable snapshots of remote data
//   - [Playlist] : Playlist metadata from the user's account
//   - [Track] : A catalog entry with link, title and ordered artists
//
// 2. Persistent Entities: database-backed models with timestamps and soft delete support
//   - [PassRecord] : Outcome of one reconciliation pass over one playlist
//
// Local files carry no persisted identity. [FileName] and [ParseFileName] encode and decode the
// "<artists> - <title>.<ext>" naming scheme used to match files to catalog entries.
package models
