// Package crawler implements the resumable jersey crawl: the domain types,
// the retry and pacing policies, and the Engine that walks listing pages and
// album pages while checkpointing progress to a StateStore.
package crawler
