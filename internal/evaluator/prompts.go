package evaluator

// DefaultJudgeModel is used when a caller asks for a verdict without naming
// a model, e.g. the MCP evaluate_response tool.
const DefaultJudgeModel = "deepseek/deepseek-chat-v3-0324:free"

// VerdictPrompt frames the judge request. It takes the criteria and the
// response, in that order. The verdict must land on the last line of the
// judge's answer so it can be parsed no matter how much reasoning the model
// emits first.
const VerdictPrompt = `You are an expert evaluator. Your task is to determine if the following AI-generated response strictly adheres to the given criteria.

**Criteria:**
%s

**Response to Evaluate:**
%s

Analyze the response against the criteria.
Your final verdict must be on the last line, in the format:
` + "`EVALUATION: (PASS|FAIL) - <brief, one-sentence justification>`" + `
For example: ` + "`EVALUATION: PASS - The response correctly identified the user's premium status.`" + `
Another example: ` + "`EVALUATION: FAIL - The response was defensive and did not adopt an empathetic tone.`"
