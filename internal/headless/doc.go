// Package headless is a renderer without a GPU. It records the commands a
// stream issues each frame, allocates pick ids, keeps clipping plane
// collections and runs an eye-dome lighting pass over recorded draws. The
// player uses it to drive a stream from the command line, and tests use it
// to inspect what a tick produced.
package headless
