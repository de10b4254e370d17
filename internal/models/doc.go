// Package models defines the domain types shared by the alias engine, the stores and the backup bridge.
//
// The package contains three groups of types:
//
// 1. Wordlist selection
//   - [Selector] : tagged value choosing a built-in locale or a custom URL
//
// 2. Persistent records
//   - [UsageRecord] : one issued alias with the site it was used on and when
//   - [Settings] : the typed user settings record (domain, selector, remote backup)
//
// 3. Portable snapshots
//   - [BackupDocument] : versioned export of settings and the usage log
//   - [Statistics] : derived counts embedded in a backup document
//
// Timestamps of usage records are normalised to UTC with millisecond precision so
// that the exact (alias, domain, timestamp) triple survives storage and export unchanged.
package models
