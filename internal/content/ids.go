package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewContributionID returns an id for an entry that is not backed by an issue.
func NewContributionID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("contrib-%d-%s", now.UnixMilli(), random[:9])
}

// NewLocalID returns an id for an entry created without any backend.
func NewLocalID(now time.Time) string {
	return fmt.Sprintf("local-%d", now.UnixMilli())
}
