// Package fetch retrieves single images over HTTP with a bounded timeout and
// reports the result as a tagged Outcome instead of an error.
//
// A target that already exists on disk is reported as a cached Success without
// any network traffic. Otherwise the body is streamed in fixed size chunks to a
// temporary file that only takes the target's name once the transfer has
// completed, so an aborted download never leaves a file that looks finished.
package fetch
