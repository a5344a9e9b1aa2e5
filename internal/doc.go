// Package internal contains the core implementation packages for certsmith.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - types: Template, Field, Record and Dimensions
//   - designer: Template editing operations and descriptor files (YAML, JSON, HCL)
//   - records: CSV, JSON and YAML record sources and the sample dataset
//   - binding: Resolution of field names against a record
//   - compositor: Per-record frames built from a template and a record
//   - assets: Background loading (file, http(s), data URL) and font faces
//   - rasterizer: Drawing frames into pixels, plus preview zoom
//   - targets: JPEG/PNG encoding, paged PDF documents and ZIP archives
//   - export: The export pipeline, its state, progress and sinks
//   - server: Preview HTTP server with WebSocket progress and live reload
//   - watcher: File system monitoring with debouncing
//   - config, errors, logging, validation, version: Ambient infrastructure
//
// # Data Flow
//
// A designer template and one record go through the compositor to a frame.
// The rasterizer turns the frame into an image. The export pipeline hands
// that image to a target encoder and delivers the artifact to a sink. The
// preview server and the export command both drive the same pipeline.
package internal
