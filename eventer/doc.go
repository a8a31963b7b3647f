// Package eventer
// Author: momentics <momentics@gmail.com>
//
// Error-classifying wrapper around a pluggable event-notification engine.
// The adapter holds no engine state: it forwards initialization and
// descriptor registration and folds the engine's failures into the toolkit
// taxonomy. Watch-quota and memory exhaustion become retryable; everything
// else (duplicate registration, invalid descriptor/engine combination,
// circular watches) is a programming error and aborts.
package eventer
