// Package backup converts between the live stores and portable [models.BackupDocument] snapshots.
//
// [Service.Export] gathers settings, the usage log and a summary of cached wordlist keys into
// a versioned document; [Service.Import] applies one back, upgrading older document versions
// first. Cached words and credentials are never exported.
//
// Remote synchronisation lives in the tasks package; this package only provides the document
// handling and naming rules it relies on.
package backup
