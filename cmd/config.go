package cmd

import "time"

const (
	DEF_MULTIPLIER    = 1.0
	DEF_SHUTDOWN_WAIT = 5 * time.Second
	DEF_MAX_TILE_MB   = 1024
)

const DESCRIPTION = `
warpstream plays time-dynamic point cloud sequences. Each interval of a
manifest names one tile; tiles are fetched ahead of the playback clock
over http(s), ftp(s), sftp or the local filesystem, decoded and presented
when the clock enters their interval.
`

const (
	PlayDescription = `The play command plays a manifest from its first interval
to its last, fetching and presenting one tile per interval.
A JSON-RPC control endpoint can be enabled to watch progress.

Example:
        warpstream play sequence.yaml
        warpstream play --multiplier 4 --rpc sequence.yaml

`
	InfoDescription = `The info command loads a manifest and prints its span,
the number of intervals and the tile sources they use. With
--tile it also fetches and decodes one tile.

Example:
        warpstream info sequence.yaml
        warpstream info --tile 0 --style height.js sequence.yaml

`
	IntervalsDescription = `The intervals command lists every interval of a manifest
with its start, stop and tile locator.

Example:
        warpstream intervals sequence.yaml

`
	CacheDescription = `The cache command inspects and clears the on-disk tile
cache used by "warpstream play".

Example:
        warpstream cache stats
        warpstream cache flush --keep-mb 128

`
	StatusDescription = `The status command connects to the control endpoint of a
running "warpstream play --rpc" and prints the stream status. With --watch it
keeps the session open and prints every presented or failed frame.

Example:
        warpstream status --rpc-secret <secret>
        warpstream status --frames --rpc-listen 127.0.0.1:7373
        warpstream status --watch

`
)
