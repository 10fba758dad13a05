package reconcile

import (
	"strconv"
	"strings"

	"github.com/civicworks/shiftsync/pkg/models"
)

// parseDurationField extracts the numeric value of a time log's duration
// field. The upstream field arrives as free-form text; missing or
// unparsable values read as zero.
func parseDurationField(h *models.Hour) float64 {
	raw := strings.TrimSpace(h.Duration)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseHourDuration returns the hour count a time log reports: the duration
// field when parsable, otherwise the recorded start/end span, and zero when
// neither is usable.
func parseHourDuration(h *models.Hour) float64 {
	raw := strings.TrimSpace(h.Duration)
	if raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			return v
		}
	}
	if h.StartAt != nil && h.EndAt != nil && h.EndAt.After(*h.StartAt) {
		return h.EndAt.Sub(*h.StartAt).Hours()
	}
	return 0
}
