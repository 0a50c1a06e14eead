package seeds

import (
	"time"
)

// GetRefreshInterval returns the refresh interval as time.Duration
func (s *ListSettings) GetRefreshInterval() time.Duration {
	if s.RefreshInterval <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(s.RefreshInterval) * time.Second
}
