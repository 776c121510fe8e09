package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// SessionFilePerm keeps the stored bearer token readable by the owner only.
	SessionFilePerm fs.FileMode = 0o600
)

const (
	// DefaultAPIBaseURL is where the SHIELD backend listens in the demo deployment.
	DefaultAPIBaseURL = "http://127.0.0.1:5000"
	// DefaultHTTPTimeout bounds a single listing request.
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultListingTimeout bounds one refresh of both organization listings.
	DefaultListingTimeout = 45 * time.Second
	// DefaultSubmitTimeout bounds one assessment submission end to end.
	DefaultSubmitTimeout = 2 * time.Minute
	// ErrorBodyLimitBytes caps how much of an error response body is read for detail.
	ErrorBodyLimitBytes = 4096
	// ResponseBodyLimitBytes caps any decoded success payload.
	ResponseBodyLimitBytes = 8 << 20
)
