package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Every fatal error returned by a run wraps exactly one of these.
var (
	// ErrConfiguration is returned for an unknown network or missing VRF references on a
	// persistent network. It is raised before any on-chain write.
	ErrConfiguration = errors.New("configuration error")
	// ErrProvisioning is returned when deploying the VRF coordinator mock, creating or funding the
	// subscription fails.
	ErrProvisioning = errors.New("provisioning error")
	// ErrDeployment is returned when the lottery deployment fails or is not confirmed.
	ErrDeployment = errors.New("deployment error")
	// ErrArtifactSync is returned when the front-end artifacts cannot be written.
	ErrArtifactSync = errors.New("artifact sync error")
)

// skipError is returned by a stage that had nothing to do. It is not a failure.
type skipError struct {
	reason string
}

func (e skipError) Error() string {
	return "skipped: " + e.reason
}

func skip(format string, args ...any) error {
	return skipError{reason: fmt.Sprintf(format, args...)}
}
