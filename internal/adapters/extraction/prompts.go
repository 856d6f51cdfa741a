package extraction

import "strings"

const entityExtractionTemplate = `You are a specialized biomedical NLP service. Your task is to analyze the provided medical text and extract all relevant clinical entities.

**Guidelines:**
1.  **Extract Entities:** Identify and extract terms related to the JSON keys provided.
2.  **Normalize:** All extracted string values in the lists should be **lowercase** for consistency.
3.  **Be Specific:** For measurements (vitals, labs), include the value and unit if provided (e.g., "104°f", "platelet count 70,000/µl").
4.  **Be Comprehensive:** Populate all lists with all relevant terms found in the text.
5.  **Exclude Negations:** Do NOT extract negated symptoms or conditions (e.g., "denies fever," "no history of...").
6.  **Focus on Patient:** Extract information *about the patient* in the text.
7.  **Populate Keys:**
    * ` + "`diseases`" + `: Confirmed or suspected medical conditions (e.g., "meningitis", "malaria").
    * ` + "`symptoms`" + `: Patient-reported complaints or observed signs (e.g., "fever", "headache", "vomiting", "lethargic").
    * ` + "`vital_signs`" + `: Specific vital sign measurements (e.g., "fever (104°f / 40°c)").
    * ` + "`anatomical_terms`" + `: Body parts or locations (e.g., "trunk", "extremities", "right upper lobe", "buccal mucosa").
    * ` + "`laboratory_findings`" + `: Lab results or findings (e.g., "thrombocytopenia", "leukopenia", "eosinophilia", "positive brudzinski's sign").
    * ` + "`treatments`" + `: Any medications or therapeutic interventions mentioned.
    * ` + "`pathogens`" + `: Specific infectious agents (e.g., "bacterial", "meningococcal", "plasmodium").
    * ` + "`procedures`" + `: Diagnostic tests or medical actions (e.g., "chest x-ray", "iv insertion").
    * ` + "`misc_medical_terms`" + `: Other relevant clinical terms that don't fit above (e.g., "petechial rash", "nuchal rigidity", "paroxysmal fevers", "cavitary lesion", "lymphadenopathy").
    * ` + "`patient_history`" + `: A *brief* summary of the patient's relevant background (e.g., "19-year-old university student", "35-year-old nurse").
    * ` + "`risk_factors`" + `: Factors that increase risk (e.g., "living in a dormitory", "history of intravenous drug use", "returned from thailand", "swam in lake malawi").

**Text to Analyze:**
{{TEXT}}

**Output Format (JSON ONLY):**
Return ONLY a valid, minified JSON object based on the schema below. Do not add any explanatory text, markdown, or apologies before or after the JSON.
{
  "diseases": [],
  "symptoms": [],
  "vital_signs": [],
  "anatomical_terms": [],
  "laboratory_findings": [],
  "treatments": [],
  "pathogens": [],
  "procedures": [],
  "misc_medical_terms": [],
  "patient_history": "",
  "risk_factors": []
}
`

// BuildEntityExtractionPrompt embeds one page of text in the extraction instructions.
func BuildEntityExtractionPrompt(text string) string {
	return strings.Replace(entityExtractionTemplate, "{{TEXT}}", text, 1)
}
