package schema

import (
	"regexp"

	"claimlens/internal/domain"
)

// identifierFormat is the shape accepted for claim/policy/invoice numbers.
var identifierFormat = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-]*$`)

// Label-proximity patterns used by the deterministic fallback extractor.
// Group 1 captures the value; the full match serves as the source quote.
var (
	claimNumberPattern   = regexp.MustCompile(`(?i)claim\s*(?:number|#)?\s*[:\-]?\s*([A-Z0-9\-]+)`)
	claimantNamePattern  = regexp.MustCompile(`(?i)claimant(?:\sname)?\s*[:\-]?\s*([A-Za-z ,.'-]+)`)
	dateOfServicePattern = regexp.MustCompile(`(?i)date of service\s*[:\-]?\s*([0-9/\-]{6,12})`)
	totalAmountPattern   = regexp.MustCompile(`(?i)total(?: amount)?\s*[:\-]?\s*(\$?[0-9,]+\.[0-9]{2})`)
	providerNamePattern  = regexp.MustCompile(`(?i)provider(?: name)?\s*[:\-]?\s*([A-Za-z0-9 ,.'-]+)`)
	policyNumberPattern  = regexp.MustCompile(`(?i)policy(?: number|#)?\s*[:\-]?\s*([A-Z0-9\-]+)`)
	invoiceNumberPattern = regexp.MustCompile(`(?i)invoice(?: number|#)?\s*[:\-]?\s*([A-Z0-9\-]+)`)
	patientNamePattern   = regexp.MustCompile(`(?i)patient(?: name)?\s*[:\-]?\s*([A-Za-z ,.'-]+)`)
)

// Keyword signals counted during type resolution. Presence of a signal in
// the document text counts once, regardless of how often it repeats.
var (
	insuranceSignals = []string{"claim", "policy", "claimant", "insurance"}
	medicalSignals   = []string{"invoice", "cpt", "medical", "patient", "provider bill"}
)

func insuranceClaimFields() []FieldDef {
	return []FieldDef{
		{Name: "claim_number", Kind: domain.FieldKindIdentifier, Critical: true, Pattern: claimNumberPattern, Format: identifierFormat},
		{Name: "claimant_name", Kind: domain.FieldKindText, Pattern: claimantNamePattern},
		{Name: "date_of_service", Kind: domain.FieldKindDate, Critical: true, Pattern: dateOfServicePattern},
		{Name: "total_amount", Kind: domain.FieldKindAmount, Critical: true, Pattern: totalAmountPattern},
		{Name: "provider_name", Kind: domain.FieldKindText, Pattern: providerNamePattern},
		{Name: "policy_number", Kind: domain.FieldKindIdentifier, Pattern: policyNumberPattern, Format: identifierFormat},
	}
}

func medicalBillFields() []FieldDef {
	return []FieldDef{
		{Name: "invoice_number", Kind: domain.FieldKindIdentifier, Critical: true, Pattern: invoiceNumberPattern, Format: identifierFormat},
		{Name: "patient_name", Kind: domain.FieldKindText, Pattern: patientNamePattern},
		{Name: "date_of_service", Kind: domain.FieldKindDate, Critical: true, Pattern: dateOfServicePattern},
		{Name: "total_amount", Kind: domain.FieldKindAmount, Critical: true, Pattern: totalAmountPattern},
		{Name: "provider_name", Kind: domain.FieldKindText, Pattern: providerNamePattern},
	}
}
