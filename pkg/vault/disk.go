package vault

import (
	"fmt"
)

// Disk capacity thresholds
const (
	MinDiskSpaceBytes  = 1024 * 1024 // 1 MB minimum free space
	DiskWarningPercent = 90          // Warn when disk is 90% full
)

// DiskSpaceInfo contains disk usage information
type DiskSpaceInfo struct {
	Total     uint64 `json:"total"`     // Total disk space in bytes
	Free      uint64 `json:"free"`      // Free disk space in bytes
	Available uint64 `json:"available"` // Available to non-root users
	UsedPct   int    `json:"used_pct"`  // Percentage of disk used
}

// checkDiskSpaceForWrite verifies there is room for the temp file before a
// save. Failing to read disk stats is only logged.
func (s *Store) checkDiskSpaceForWrite(dataSize int) error {
	info, err := CheckDiskSpace(s.dir())
	if err != nil {
		s.logger.Warn("failed to check disk space", "error", err)
		return nil
	}

	// Need at least MinDiskSpaceBytes or 2x the data size, whichever is larger
	required := uint64(MinDiskSpaceBytes)
	if uint64(dataSize)*2 > required {
		required = uint64(dataSize) * 2
	}

	if info.Available < required {
		return fmt.Errorf("%w: only %d bytes available, need at least %d",
			ErrInsufficientDisk, info.Available, required)
	}

	if info.UsedPct >= DiskWarningPercent {
		s.logger.Warn("disk is nearly full, consider freeing space", "used_pct", info.UsedPct)
	}

	return nil
}
