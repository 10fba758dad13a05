package reconcile

import (
	"strings"

	"github.com/civicworks/shiftsync/pkg/models"
)

// deriveCheckinStatus resolves a volunteer's attendance state from their
// authoritative time log. Rules apply in strict priority: a denial cancels,
// any completion signal (approval, positive duration, or a record the
// tracking system has amended since creation) completes, a cancelled signup
// stays cancelled, and everything else means the volunteer is on site.
func deriveCheckinStatus(hour *models.Hour, duration float64, provisional string) string {
	status := strings.ToLower(hour.Status)

	if strings.Contains(status, "denied") || status == "deny" || strings.Contains(status, "reject") {
		return models.CheckinCancelled
	}
	if strings.Contains(status, "approve") || status == "a" {
		return models.CheckinCompleted
	}
	if duration > 0 {
		return models.CheckinCompleted
	}
	if hour.DateCreated != nil && hour.DateUpdated != nil && !hour.DateCreated.Equal(*hour.DateUpdated) {
		return models.CheckinCompleted
	}
	if provisional == models.CheckinCancelled {
		return models.CheckinCancelled
	}
	return models.CheckinActive
}

// checkoutSummary condenses provenance signals into a single label for
// reporting which half of the visit was recorded.
func checkoutSummary(p Provenance) string {
	switch {
	case p.HasCheckin && p.HasCheckout:
		return models.CheckoutInAndOut
	case p.HasCheckin:
		return models.CheckoutInOnly
	case p.HasManagerApproval:
		return models.CheckoutManagerApproved
	default:
		return models.CheckoutNoActivity
	}
}
