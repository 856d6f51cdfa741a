package entities

import "strings"

// historySeparator joins patient history paragraphs contributed by different pages.
const historySeparator = "\n\n"

// CaseRecord is the canonical structured summary of one source clinical document.
// List fields are append-only and keep page order; nothing is deduplicated.
type CaseRecord struct {
	CaseID             string   `json:"case_id"`
	Diseases           []string `json:"diseases"`
	Symptoms           []string `json:"symptoms"`
	VitalSigns         []string `json:"vital_signs"`
	AnatomicalTerms    []string `json:"anatomical_terms"`
	LaboratoryFindings []string `json:"laboratory_findings"`
	Treatments         []string `json:"treatments"`
	Pathogens          []string `json:"pathogens"`
	Procedures         []string `json:"procedures"`
	MiscMedicalTerms   []string `json:"misc_medical_terms"`
	PatientHistory     string   `json:"patient_history"`
	RiskFactors        []string `json:"risk_factors"`
}

// NewCaseRecord creates an empty record for the given case. All list fields
// are non-nil so they persist as [] rather than null.
func NewCaseRecord(caseID string) CaseRecord {
	return CaseRecord{
		CaseID:             caseID,
		Diseases:           []string{},
		Symptoms:           []string{},
		VitalSigns:         []string{},
		AnatomicalTerms:    []string{},
		LaboratoryFindings: []string{},
		Treatments:         []string{},
		Pathogens:          []string{},
		Procedures:         []string{},
		MiscMedicalTerms:   []string{},
		RiskFactors:        []string{},
	}
}

// PageExtraction is the structured output of analysing one page's text.
// A nil list means the field was absent from the response.
type PageExtraction struct {
	Diseases           []string `json:"diseases"`
	Symptoms           []string `json:"symptoms"`
	VitalSigns         []string `json:"vital_signs"`
	AnatomicalTerms    []string `json:"anatomical_terms"`
	LaboratoryFindings []string `json:"laboratory_findings"`
	Treatments         []string `json:"treatments"`
	Pathogens          []string `json:"pathogens"`
	Procedures         []string `json:"procedures"`
	MiscMedicalTerms   []string `json:"misc_medical_terms"`
	PatientHistory     string   `json:"patient_history"`
	RiskFactors        []string `json:"risk_factors"`
}

// MergePage returns existing with incoming appended to every list field and
// the incoming history added as a new paragraph when it is non-blank.
// The result never shares backing arrays with existing, so existing is left
// untouched. Merging the same page twice duplicates its entries.
func MergePage(existing CaseRecord, incoming PageExtraction) CaseRecord {
	merged := CaseRecord{
		CaseID:             existing.CaseID,
		Diseases:           concat(existing.Diseases, incoming.Diseases),
		Symptoms:           concat(existing.Symptoms, incoming.Symptoms),
		VitalSigns:         concat(existing.VitalSigns, incoming.VitalSigns),
		AnatomicalTerms:    concat(existing.AnatomicalTerms, incoming.AnatomicalTerms),
		LaboratoryFindings: concat(existing.LaboratoryFindings, incoming.LaboratoryFindings),
		Treatments:         concat(existing.Treatments, incoming.Treatments),
		Pathogens:          concat(existing.Pathogens, incoming.Pathogens),
		Procedures:         concat(existing.Procedures, incoming.Procedures),
		MiscMedicalTerms:   concat(existing.MiscMedicalTerms, incoming.MiscMedicalTerms),
		PatientHistory:     existing.PatientHistory,
		RiskFactors:        concat(existing.RiskFactors, incoming.RiskFactors),
	}

	if strings.TrimSpace(incoming.PatientHistory) != "" {
		if merged.PatientHistory != "" {
			merged.PatientHistory += historySeparator + incoming.PatientHistory
		} else {
			merged.PatientHistory = incoming.PatientHistory
		}
	}

	return merged
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// SearchableText returns the lowercased diseases, history and symptoms of the
// record joined by spaces. It is the text relevance judgements are made against.
func (c CaseRecord) SearchableText() string {
	return strings.ToLower(strings.Join([]string{
		strings.Join(c.Diseases, " "),
		c.PatientHistory,
		strings.Join(c.Symptoms, " "),
	}, " "))
}
