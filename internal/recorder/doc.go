// Package recorder drives one capture stream through a chunked encoder and
// persists every chunk through the chunk store.
//
// Each chunk is written by its own goroutine registered with a WaitGroup;
// StopRecording waits for the encoder's final chunk and then for every
// in-flight write before releasing the device. Chunk write failures and
// encoder errors are logged, never returned.
package recorder
