package checkpoint

import "github.com/evochora/evochora-sub009/internal/engineerr"

// resumeErr builds a KindResume engineerr.Error, op naming the failed
// checkpoint step. Every failure path in this package produces one of
// these; resume is fatal and always aborts on the first one.
func resumeErr(op string, cause error) error {
	return engineerr.New(engineerr.KindResume, op, cause)
}
