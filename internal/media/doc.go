// Package media turns claimed job payloads into archived source files and
// web-ready derivatives.
//
// The Processor is queue-agnostic: ImportFromURL and ProcessUpload take
// fully-resolved inputs and either return a library Record or an error. Each
// successful job writes two files: an archival copy in the source directory
// and an optimized derivative (WEBP for images, H.264 MP4 for video) in the
// optimized directory. Optimization degrades gracefully: when the external
// tool is missing or fails, the original bytes are copied through under
// their original extension so a job never fails just because an optional
// binary is absent.
package media
