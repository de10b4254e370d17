// Package tasks orchestrates alias issuing and remote backups with progress reporting.
//
// # Core Operations
//
//  1. [AliasService.Issue] : generate an alias for the configured domain
//     - Loads settings and rejects an unset catch-all domain
//     - Runs the generator against the active wordlist and usage log
//     - Appends {site, alias, now} to the usage log and notifies the auto-backup trigger
//
//  2. [BackupEngine.Push] : upload a snapshot to the configured repository
//     - Builds the backup document
//     - Reads the current revision of the target file (read-before-write)
//     - Writes the file conditionally and records the outcome in settings
//
//  3. [BackupEngine.Restore] : download a remote document and import it
//
// # Auto Backup
//
// [Debouncer] coalesces bursts of triggers into one run after a quiet period. It moves
// between [Idle], [Pending] and [Running]; a trigger that arrives while running schedules
// one more run afterwards.
//
// # Progress Reporting
//
// Long operations accept an optional channel of [ProgressUpdate]. Sends never block; updates
// are dropped when the channel is full.
package tasks
