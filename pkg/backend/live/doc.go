// Package live serves the runtime over HTTP and WebSocket. Each
// connection gets its own render loop: the server sends the mounted
// tree as one frame, streams patch batches after every cycle, and feeds
// client events back into the loop.
package live
