package entities

import "strings"

// MetadataCaseID is the only metadata key stored with an indexed document.
const MetadataCaseID = "case_id"

// EmbeddableDocument is the flattened text of a finalised case record, the
// unit stored in the similarity index.
type EmbeddableDocument struct {
	CaseID string `json:"case_id"`
	Text   string `json:"text"`
}

// Metadata returns the metadata stored alongside the document in the index.
func (d EmbeddableDocument) Metadata() map[string]string {
	return map[string]string{MetadataCaseID: d.CaseID}
}

// NewEmbeddableDocument flattens a case record into "<Label>: <values>" lines,
// one per non-empty field.
func NewEmbeddableDocument(record CaseRecord) EmbeddableDocument {
	lines := make([]string, 0, 11)

	if record.PatientHistory != "" {
		lines = append(lines, "Patient History: "+record.PatientHistory)
	}

	fields := []struct {
		label  string
		values []string
	}{
		{"Diseases", record.Diseases},
		{"Symptoms", record.Symptoms},
		{"Treatments", record.Treatments},
		{"Laboratory Findings", record.LaboratoryFindings},
		{"Risk Factors", record.RiskFactors},
		{"Pathogens", record.Pathogens},
		{"Procedures", record.Procedures},
		{"Vital Signs", record.VitalSigns},
		{"Anatomical Terms", record.AnatomicalTerms},
		{"Misc Medical Terms", record.MiscMedicalTerms},
	}
	for _, f := range fields {
		if len(f.values) == 0 {
			continue
		}
		lines = append(lines, f.label+": "+strings.Join(f.values, ", "))
	}

	return EmbeddableDocument{
		CaseID: record.CaseID,
		Text:   strings.Join(lines, "\n"),
	}
}
