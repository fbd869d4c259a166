// Package audio implements the device-facing pipelines: microphone
// capture framed as 16-bit PCM, and speaker playback of raw or
// WAV-encoded synthesis output.
//
// Capture and playback run on device callback threads outside the
// connection event loop; they synchronize with the rest of the client
// only through the frame-ready and completion callbacks.
package audio
