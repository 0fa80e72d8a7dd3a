// Package library inspects and reconciles a local playlist folder against a remote catalog.
//
// A playlist folder holds audio files named "<artists> - <title><ext>" plus tracking artifacts that the
// downloader leaves behind. [Scan] reads the folder, [Reconcile] computes what to fetch and what to delete, and
// [Cleanup] applies the delete half after downloads finish.
//
// # Survival rule
//
// A local file is deleted only when neither its artist segment nor its title segment matches any catalog track.
// Matching on either one alone is enough to keep it, so a track renamed remotely or credited to a different
// artist list is not thrown away.
package library
