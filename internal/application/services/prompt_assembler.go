package services

import (
	"strings"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/tokenizer"
)

const diagnosisTemplate = `You are an expert tropical medicine physician.
Use the following case reports to help diagnose the patient's condition.

Context from similar cases:
{{CONTEXT}}

Patient Query: {{QUESTION}}

Based on the similar cases above, provide:
1. Most likely diagnosis
2. Key supporting evidence from the cases
3. Recommended diagnostic tests
4. Suggested treatment approach

Answer:`

// NoSimilarCasesContext stands in for the context when nothing was retrieved.
const NoSimilarCasesContext = "No similar cases were found in the case library."

const documentSeparator = "\n\n"

// PromptAssembler fills the diagnosis template with retrieved case text,
// bounding the context to a token budget.
type PromptAssembler struct {
	counter tokenizer.Counter
	budget  int
}

// NewPromptAssembler creates an assembler allowing budget context tokens.
func NewPromptAssembler(counter tokenizer.Counter, budget int) *PromptAssembler {
	return &PromptAssembler{counter: counter, budget: budget}
}

// BuildContext joins document texts in rank order until the budget is spent.
// The document that overflows the budget is cut at a token boundary and the
// rest are dropped.
func (a *PromptAssembler) BuildContext(docs []entities.EmbeddableDocument) string {
	if len(docs) == 0 {
		return NoSimilarCasesContext
	}

	var sb strings.Builder
	used := 0
	sepCost := a.counter.Count(documentSeparator)
	for i, doc := range docs {
		cost := a.counter.Count(doc.Text)
		if i > 0 {
			cost += sepCost
		}
		if a.budget <= 0 || used+cost <= a.budget {
			if i > 0 {
				sb.WriteString(documentSeparator)
			}
			sb.WriteString(doc.Text)
			used += cost
			continue
		}

		remaining := a.budget - used
		if i > 0 {
			remaining -= sepCost
		}
		if remaining > 0 {
			if i > 0 {
				sb.WriteString(documentSeparator)
			}
			sb.WriteString(a.counter.Truncate(doc.Text, remaining))
		}
		break
	}
	return sb.String()
}

// Assemble returns the full generation prompt for question.
func (a *PromptAssembler) Assemble(question string, docs []entities.EmbeddableDocument) string {
	return strings.NewReplacer(
		"{{CONTEXT}}", a.BuildContext(docs),
		"{{QUESTION}}", question,
	).Replace(diagnosisTemplate)
}
