// Package tasks keeps local playlist folders in step with remote playlists.
//
// # Reconciliation pass
//
// [SyncEngine.RunPass] handles one playlist:
//
//  1. fetch the remote catalog through [services.Catalog]
//  2. scan <output>/<playlist> with [library.Scan], creating it on first sync
//  3. compute the fetch and delete sets with [library.Reconcile]
//  4. hand the fetch set to a [Dispatcher] and wait for every fetch
//  5. remove stale files and tracking artifacts with [library.Cleanup]
//  6. record the outcome through the optional [HistoryRecorder]
//
// A missing output root is a configuration error and aborts the pass before anything is fetched.
//
// # Modes
//
// [SyncEngine.RunOnce] runs a pass for the selected playlist, or for every playlist on the account when
// [Selection.All] is set. [SyncEngine.Monitor] repeats that forever with [Options.Interval] between runs and
// returns nil once its context is cancelled.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct carries the phase, step counters and a message. Updates use select with default
// so a slow or absent reader never stalls a pass.
//
// # Time
//
// The engine reads time and sleeps through [Clock]; tests substitute a fake that advances instantly.
package tasks
