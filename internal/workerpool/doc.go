// Package workerpool hosts subtask execution for the orchestrator on a
// bounded set of workers.
//
// The orchestrator hands each ready subtask to the pool via Submit; the
// pool assigns it to an idle worker or, once every worker is busy, holds it
// until a worker frees up. Waiting submissions are not guaranteed to start
// in submission order. Each Submit is bounded by a hard wall-clock timeout
// (SubmitTimeout with a non-positive timeout runs without one); on expiry
// the worker's context is cancelled and the submission fails with a
// timeout error rather than running unbounded.
//
// Workers are isolated execution contexts: a worker's Func communicates
// results only through Submit's return channel, never through state shared
// with the caller.
//
// Pool size is resizable at runtime via SetSize, reusing the same dynamic
// semaphore idiom the teacher used to throttle concurrent instances.
package workerpool
