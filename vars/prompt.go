package vars

// 提示词
const (
	CONTRACT_TYPE_PROMPT = `
You are a legal document classifier. Read the snippet below and name the single most
specific type of contract or legal agreement it represents.

Typical answers: "Employment Agreement", "Non-Disclosure Agreement", "Master Service Agreement",
"Statement of Work", "Lease Agreement", "Software License Agreement", "Loan Agreement",
"Purchase Agreement", "Partnership Agreement", "Terms of Service", "Settlement Agreement".

Rules:
1. Reply with the type name only. No quotes, no markdown, no explanation.
2. If the text is not a contract (an invoice, a memo, marketing copy) or the type cannot be
   determined, reply with exactly: Unknown Document Type

Snippet:
{{.Content}}
`

	FREE_ANALYSIS_PROMPT = `
You review a {{.ContractType}} on behalf of the party receiving it. Provide:
1. At least {{.MinItems}} potential risks, each with a short explanation.
2. At least {{.MinItems}} potential opportunities or benefits, each with a short explanation.
3. A brief summary of the contract.
4. An overall favorability score from 1 to 100 (100 is most favorable), weighing the risks
   against the opportunities.

Answer with one JSON object that validates against this JSON Schema:
{{.Schema}}

Output the JSON object only, without markdown fences or any other text.

Contract text:
{{.Content}}
`

	PREMIUM_ANALYSIS_PROMPT = `
You review a {{.ContractType}} on behalf of the party receiving it. Provide:
1. At least {{.MinItems}} potential risks, each with a short explanation and a severity (low, medium, high).
2. At least {{.MinItems}} potential opportunities or benefits, each with a short explanation and an impact (low, medium, high).
3. A comprehensive summary covering the key terms and conditions.
4. Recommendations that would improve the contract for the receiving party.
5. The key clauses.
6. An assessment of legal compliance.
7. Points worth negotiating.
8. The contract duration or term, if stated.
9. The termination conditions, if stated.
10. The financial terms or compensation structure, if any.
11. Performance metrics or KPIs, if any.
12. Clauses specific to this type of contract (for example IP for employment, warranties for sales).
13. An overall favorability score from 1 to 100 (100 is most favorable), weighing the risks
    against the opportunities.

Answer with one JSON object that validates against this JSON Schema:
{{.Schema}}

Output the JSON object only, without markdown fences or any other text.

Contract text:
{{.Content}}
`
)
