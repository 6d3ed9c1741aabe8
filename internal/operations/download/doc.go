// Package download writes stored objects to local files.
//
// Content is streamed into a uniquely named temporary file beside the
// destination and renamed into place once complete, so a failed download
// never leaves a partial file at the destination path.
package download
