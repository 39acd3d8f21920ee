package repository

import (
	"context"

	"github.com/ca-srg/relaunch/domain/entity"
)

// UpdateProbe checks a release source for a newer version and for the
// configuration the server is authoritative for
type UpdateProbe interface {
	// Check fetches the manifest and compares it with currentVersion.
	// An error means the check itself failed and should be retried later.
	// A broken server configuration is reported on the result instead.
	Check(ctx context.Context, currentVersion string) (*entity.ProbeResult, error)

	// Source describes where the manifest comes from
	Source() string
}
