// Package errors provides centralized error sentinels for piku, grouped by
// the component that raises them.
package errors

import "errors"

// App / path errors (C1).
var (
	ErrAppNotFound  = errors.New("app not found")
	ErrInvalidName  = errors.New("invalid app name")
	ErrAppExists    = errors.New("app already exists")
)

// Settings errors (C2).
var (
	ErrMalformedLine = errors.New("malformed configuration line")
)

// Procfile errors (C3).
var (
	ErrNoProcfile      = errors.New("no Procfile found")
	ErrMalformedCron   = errors.New("malformed cron expression")
	ErrCronFieldRange  = errors.New("cron field out of range")
	ErrDuplicateKind   = errors.New("duplicate worker kind in Procfile")
)

// Detector/builder errors (C4).
var (
	ErrNoRuntimeDetected = errors.New("could not detect runtime")
	ErrBuildToolMissing  = errors.New("required build tool not found on PATH")
	ErrHookFailed        = errors.New("hook command exited non-zero")
)

// Reconciler errors (C5).
var (
	ErrNegativeScale   = errors.New("scale target is negative")
	ErrUnknownKind     = errors.New("worker kind not present in Procfile")
)

// Vassal errors (C6).
var (
	ErrUnsupportedKind = errors.New("worker kind has no vassal representation")
)

// nginx errors (C7).
var (
	ErrNginxValidation = errors.New("nginx configuration failed validation")
	ErrNoFreePort      = errors.New("could not allocate a free port")
)

// git hook errors (C8).
var (
	ErrNotABareRepo = errors.New("repository is not initialized")
)

// SSH authorization errors (C11).
var (
	ErrFingerprintFailed = errors.New("could not compute key fingerprint")
)
