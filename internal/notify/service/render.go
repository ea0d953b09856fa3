package service

import (
	"fmt"

	dmodels "paygate/internal/document/models"
)

// renderMessage produces the contractor-facing reminder body. Wording is
// specific about which document is lapsing and when, so the contractor can
// act on it without logging in.
func renderMessage(doc *dmodels.ComplianceDocument, horizonDays int) string {
	name := doc.Type.DisplayName()
	expiry := doc.ExpiryDate.Format("2 January 2006")

	switch {
	case horizonDays == 0:
		return fmt.Sprintf("Your %s document expires today (%s). Payments will be blocked until a replacement is uploaded.", name, expiry)
	case horizonDays == 1:
		return fmt.Sprintf("Your %s document expires tomorrow (%s). Upload a replacement now to avoid payment holds.", name, expiry)
	case horizonDays < 7:
		return fmt.Sprintf("Your %s document expires in %d days (%s). Upload a replacement now to avoid payment holds.", name, horizonDays, expiry)
	case horizonDays < 30:
		return fmt.Sprintf("Your %s document expires in %d days (%s). Please upload a replacement before then.", name, horizonDays, expiry)
	default:
		return fmt.Sprintf("Your %s document expires on %s. Plan to upload a replacement in the coming weeks.", name, expiry)
	}
}
