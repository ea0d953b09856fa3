package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseContractorID checks that parsing never panics on arbitrary input
// and that accepted values survive a round-trip through String.
func FuzzParseContractorID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE contractors;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseContractorID(input)
		if err != nil {
			return
		}

		roundTrip, err := ParseContractorID(id.String())
		if err != nil {
			t.Errorf("accepted ID failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed the ID value")
		}

		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseAllIDs checks that every ID type applies the same validation.
func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errContractor := ParseContractorID(input)
		_, errDocument := ParseDocumentID(input)
		_, errInvoice := ParseInvoiceID(input)
		_, errNotification := ParseNotificationID(input)

		accepted := errContractor == nil
		if (errDocument == nil) != accepted || (errInvoice == nil) != accepted || (errNotification == nil) != accepted {
			t.Error("inconsistent validation across ID types")
		}
	})
}
