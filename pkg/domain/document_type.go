package domain

import "fmt"

// DocumentType is the closed set of compliance document kinds the engine
// understands. Unknown types are rejected at the validation boundary rather
// than defaulted.
type DocumentType string

const (
	DocTypePublicLiability       DocumentType = "public_liability"
	DocTypeEmployersLiability    DocumentType = "employers_liability"
	DocTypeProfessionalIndemnity DocumentType = "professional_indemnity"
	DocTypeGasSafe               DocumentType = "gas_safe"
	DocTypeNICEIC                DocumentType = "niceic"
	DocTypeCSCSCard              DocumentType = "cscs_card"
)

var documentTypes = map[DocumentType]struct{}{
	DocTypePublicLiability:       {},
	DocTypeEmployersLiability:    {},
	DocTypeProfessionalIndemnity: {},
	DocTypeGasSafe:               {},
	DocTypeNICEIC:                {},
	DocTypeCSCSCard:              {},
}

// ParseDocumentType validates a raw document type string.
func ParseDocumentType(s string) (DocumentType, error) {
	dt := DocumentType(s)
	if _, ok := documentTypes[dt]; !ok {
		return "", fmt.Errorf("unsupported document type %q", s)
	}
	return dt, nil
}

func (t DocumentType) String() string { return string(t) }

// DisplayName is the contractor-facing name used in reminder messages.
func (t DocumentType) DisplayName() string {
	switch t {
	case DocTypePublicLiability:
		return "public liability insurance"
	case DocTypeEmployersLiability:
		return "employers' liability insurance"
	case DocTypeProfessionalIndemnity:
		return "professional indemnity insurance"
	case DocTypeGasSafe:
		return "Gas Safe registration"
	case DocTypeNICEIC:
		return "NICEIC certification"
	case DocTypeCSCSCard:
		return "CSCS card"
	default:
		return string(t)
	}
}

// IsInsurance reports whether the type is an insurance policy rather than a
// trade certification. Insurance types carry coverage amounts.
func (t DocumentType) IsInsurance() bool {
	switch t {
	case DocTypePublicLiability, DocTypeEmployersLiability, DocTypeProfessionalIndemnity:
		return true
	default:
		return false
	}
}
