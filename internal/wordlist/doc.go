// Package wordlist turns raw word files into validated word pools and caches them.
//
// A [Source] resolves a [models.Selector] to a [Pool]: bundled locales are read from an
// embedded filesystem (optionally overridden by a directory), custom selectors are fetched
// over HTTP. Every source goes through [Parse] and must yield at least the configured
// minimum number of words.
//
// A [Cache] sits in front of the source with two tiers: a single in-memory slot for the
// last loaded selector and a durable key/value store with one entry per selector. When a
// source fails the cache falls back to a designated built-in locale.
package wordlist
