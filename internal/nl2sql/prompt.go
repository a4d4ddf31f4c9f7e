package nl2sql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/examlens/examlens/internal/llm"
	"github.com/examlens/examlens/internal/schema"
)

var stopSequences = []string{"<|eot_id|>", "<|end_of_text|>", "\n```"}

const instructions = `You convert natural language questions into safe, correct SQL SELECT queries for a %s database.

Rules:
- Use only SELECT statements. Never modify data (no INSERT, UPDATE, DELETE, DROP, ALTER, etc.).
- Use the exact table and column names listed below (case-insensitive).
- Prefer INNER JOINs when linking related tables.
- Always generate readable results (e.g. combine F_Name and L_Name for full student names).
- If a question mentions "average", "count", "highest", etc., use aggregate functions properly.
- If unsure, return a reasonable best guess query that will not cause an error. Do not refuse.
- The user may write in Arabic or English. Understand the request, find the target tables and columns, and generate the correct SQL.
- If the user asks for a chart or plot, describe it briefly in visualization_request; otherwise leave it empty.

Respond with exactly one JSON object and nothing else, no markdown fences:
{"sql_query": "<the SQL>", "visualization_request": "<chart request or empty string>"}

Database schema:
%s`

func buildSystemPrompt(description *schema.Description) string {
	return fmt.Sprintf(instructions, description.Dialect(), description.PromptText())
}

func buildTurns(description *schema.Description, question string) ([]llm.Message, error) {
	example := description.Example()
	answer, err := json.Marshal(example.Response)
	if err != nil {
		return nil, fmt.Errorf("marshal worked example: %w", err)
	}
	return []llm.Message{
		{Role: llm.RoleUser, Content: strings.TrimSpace(example.Question)},
		{Role: llm.RoleAssistant, Content: string(answer)},
		{Role: llm.RoleUser, Content: question},
	}, nil
}
