// Package manager provides lifecycle, admission, and generation coordination
// for model sessions. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; New applies defaults.
//   - types.go: internal state types (State, Instance, Snapshot).
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound).
//   - helpers.go: small utilities (model lookup, memory estimation).
//   - admission.go: per-instance queueing and generation admission.
//   - ensure.go: EnsureSession lifecycle and loading.
//   - evict.go: eviction logic to fit within the memory budget.
//   - infer.go: generation API entry point and NDJSON streaming.
//   - status.go: Status/Snapshot reporting helpers.
//   - factory.go: SessionFactory seam between the manager and the backend.
//
// Build tags and backends:
//
//   - Fine-grained session backend (standard): drives internal/session over
//     the engine boundary. The cgo engine is enabled with `-tags=llama`; the
//     default build fails fast at load time instead of mocking inference.
//
//   - Coarse binding backend: `-tags=llama_binding` swaps the factory for the
//     go-llama.cpp binding, which owns its own prompt evaluation and token
//     callback plumbing. Useful where the full llama.cpp C API is not
//     available.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (New, Ready, ListModels, Status, Infer, Unload,
// Close). Internal types are subject to change.
package manager
