// Package repositories implements SQLite persistence for the alias generator.
//
// Key Implementations:
//   - [KVRepository] : durable key/value store backing the wordlist cache and settings
//   - [UsageLogRepository] : append-only usage log with an indexed alias lookup
//   - [SettingsRepository] : typed [models.Settings] record kept under a single KV key
//   - [DataMigrator] : versioned, idempotent upgrades of persisted data
//
// Sequence numbers give the usage log a stable insertion order independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
