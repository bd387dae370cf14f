// Package decode turns encoded audio files into in-memory AudioBuffers.
//
// A Registry maps format names to Decoders. NewDefaultRegistry knows WAV,
// AIFF, MP3, Ogg Vorbis and length-prefixed Opus packet streams. Decoded
// buffers keep the file's sample rate; resampling to a context rate is left
// to the caller.
package decode
