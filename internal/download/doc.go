// Package download runs the external audio fetcher for every missing track.
//
// [Spotdl] shells out to spotdl, trying the YouTube source first and then the default resolution for the same
// link. [Dispatcher] fans the fetches out over a bounded errgroup and waits for all of them; a failing track is
// logged and counted, never fatal to the batch.
package download
