// Package scout implements the scan/publish loop.
//
// A Scanner connects its transport once and then repeats cycles until its
// context is cancelled. Each cycle walks the configured channels in order:
//
//  1. Fetch the channel's messages inside the scan window (oldest first)
//  2. Skip messages without text or already in the dedupe cache
//  3. Skip messages the keyword filter rejects
//  4. Format and publish the post to the destination
//  5. Record the message in the cache and wait request_delay
//
// A rate-limited publish waits the requested time and moves on without
// recording the message, so it is retried on the next cycle if still inside
// the window. Any other publish failure is logged and dropped. After the last
// channel the loop pauses before starting again.
//
// Processing is strictly sequential: one message at a time, one channel at a
// time. Every wait observes the context.
package scout
