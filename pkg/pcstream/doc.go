// Package pcstream plays a time-ordered sequence of point cloud tiles against
// a clock.
//
// Each Tick resolves the interval containing the clock's current time, makes
// sure its tile is fetched, decoded and prepared without blocking, and hands
// the ready tile to the renderer. The next tile in the direction of playback
// is prefetched once the boundary is less than five wall-clock seconds away.
// Fetches run on their own goroutines; their results are picked up on a later
// Tick. Everything else happens on the goroutine that calls Tick.
//
// A tile that is not ready yet is simply not drawn; the stream never falls
// back to an older tile. Failed tiles are reported and never retried.
package pcstream
