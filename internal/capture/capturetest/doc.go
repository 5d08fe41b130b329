// Package capturetest provides scriptable in-memory capture sources and
// encoders for tests that must not touch cameras, displays or ffmpeg.
package capturetest
