package conflict

import (
	"fmt"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Detect flags two versions as conflicting when they were modified less than
// tolerance apart and a user-visible field differs. Without a
// last-sync checkpoint this approximates "both sides changed since the last
// sync"; edits tolerance or more apart are treated as ordinary updates.
func Detect(internal, external models.RecordVersion, tolerance time.Duration) models.ConflictDetection {
	gap := internal.ModifiedAt.Sub(external.ModifiedAt)
	if gap < 0 {
		gap = -gap
	}

	var diff []string
	if internal.Name != external.Name {
		diff = append(diff, "name")
	}
	if internal.Description() != external.Description() {
		diff = append(diff, "description")
	}

	detection := models.ConflictDetection{
		DiffFields:    diff,
		TimestampDiff: gap.String(),
	}

	switch {
	case len(diff) == 0:
		detection.Reason = "versions agree on name and description"
	case gap >= tolerance:
		detection.Reason = fmt.Sprintf("modification times are %s apart, outside the %s tolerance", gap, tolerance)
	default:
		detection.Conflict = true
		detection.Reason = fmt.Sprintf("both versions modified within %s and differ", tolerance)
	}

	return detection
}
