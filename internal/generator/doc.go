// Package generator composes catch-all email aliases and guards their uniqueness.
//
// An alias has the shape word_word_NNN@domain where both words are drawn with replacement
// from the active [wordlist.Pool] and NNN is uniform in [100, 999]. Each call makes at most
// [MaxAttempts] attempts; candidates longer than [MaxAddressLength] characters or already
// present in the usage log are retried. When the usage log cannot be queried the candidate
// is accepted and the result is marked degraded.
//
// Two concurrent calls may accept the same candidate before either is recorded. Callers that
// need strict uniqueness must serialise generation with recording.
package generator
