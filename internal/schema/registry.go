// Package schema declares, per document type, the fields the pipeline
// extracts, which of them are critical, and how a document is classified
// into one of the known types.
package schema

import (
	"regexp"
	"strings"

	"claimlens/internal/domain"
)

// FieldDef describes one extractable field of a document type.
type FieldDef struct {
	Name     string
	Kind     domain.FieldKind
	Critical bool
	// Pattern is the label-proximity regex used by the fallback extractor;
	// group 1 captures the value.
	Pattern *regexp.Regexp
	// Format, when set, is the shape a present value must match to be valid.
	Format *regexp.Regexp
}

// DocumentTypeSchema is the read-only definition of one document type.
type DocumentTypeSchema struct {
	Type         domain.DocumentType
	Fields       []FieldDef
	HasLineItems bool
	keywords     []string
}

// FieldNames returns the defined field names in declaration order.
func (s *DocumentTypeSchema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// CriticalFields returns the names of fields whose absence forces review.
func (s *DocumentTypeSchema) CriticalFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Critical {
			names = append(names, f.Name)
		}
	}
	return names
}

// Field looks up a field definition by name.
func (s *DocumentTypeSchema) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Config lets deployments override which fields count as critical.
// Empty lists keep the built-in defaults.
type Config struct {
	InsuranceCriticalFields []string
	MedicalCriticalFields   []string
}

// Registry holds the closed set of document-type schemas. It is built once
// at startup and read concurrently without synchronization.
type Registry struct {
	schemas map[domain.DocumentType]*DocumentTypeSchema
}

// NewRegistry builds the registry with the built-in insurance-claim and
// medical-bill definitions, applying any critical-field overrides.
func NewRegistry(cfg Config) *Registry {
	insurance := &DocumentTypeSchema{
		Type:         domain.DocTypeInsuranceClaim,
		Fields:       insuranceClaimFields(),
		HasLineItems: true,
		keywords:     insuranceSignals,
	}
	medical := &DocumentTypeSchema{
		Type:         domain.DocTypeMedicalBill,
		Fields:       medicalBillFields(),
		HasLineItems: true,
		keywords:     medicalSignals,
	}
	applyCriticalOverride(insurance, cfg.InsuranceCriticalFields)
	applyCriticalOverride(medical, cfg.MedicalCriticalFields)

	return &Registry{schemas: map[domain.DocumentType]*DocumentTypeSchema{
		domain.DocTypeInsuranceClaim: insurance,
		domain.DocTypeMedicalBill:    medical,
	}}
}

func applyCriticalOverride(s *DocumentTypeSchema, names []string) {
	if len(names) == 0 {
		return
	}
	critical := make(map[string]bool, len(names))
	for _, n := range names {
		critical[strings.TrimSpace(n)] = true
	}
	for i := range s.Fields {
		s.Fields[i].Critical = critical[s.Fields[i].Name]
	}
}

// SchemaFor returns the schema for a known document type.
func (r *Registry) SchemaFor(t domain.DocumentType) (*DocumentTypeSchema, error) {
	s, ok := r.schemas[t]
	if !ok {
		return nil, domain.ErrUnknownDocumentType
	}
	return s, nil
}

// Resolve classifies a document by caller hint or keyword signals in its
// text. A valid hint always wins. Without one, the type with more distinct
// keyword signals is chosen; no signals at all, or a tie, is a
// TypeResolutionError rather than a guess.
func (r *Registry) Resolve(text, hint string) (domain.DocumentType, error) {
	if hint != "" {
		t := domain.DocumentType(hint)
		if domain.KnownDocumentTypes[t] {
			return t, nil
		}
		return "", &domain.TypeResolutionError{Hint: hint}
	}

	normalized := strings.ToLower(text)
	ins := countSignals(normalized, r.schemas[domain.DocTypeInsuranceClaim].keywords)
	med := countSignals(normalized, r.schemas[domain.DocTypeMedicalBill].keywords)

	switch {
	case ins == 0 && med == 0:
		return "", &domain.TypeResolutionError{}
	case ins == med:
		return "", &domain.TypeResolutionError{InsuranceSignals: ins, MedicalSignals: med}
	case ins > med:
		return domain.DocTypeInsuranceClaim, nil
	default:
		return domain.DocTypeMedicalBill, nil
	}
}

func countSignals(normalized string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			n++
		}
	}
	return n
}
