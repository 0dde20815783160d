package agent

import (
	"fmt"
	"strings"

	"github.com/footnote/backend/internal/retrieve"
)

// DefaultMaxIterations is the agent loop's iteration cap, per §4.6.
const DefaultMaxIterations = 10

// buildAgentSystemPrompt templates the tool-calling loop's system prompt
// with the folder's name and indexing progress, matching
// build_agent_system_prompt.
func buildAgentSystemPrompt(folderName string, filesIndexed, filesTotal, maxIterations int) string {
	return fmt.Sprintf(agentSystemPromptTemplate, folderName, filesIndexed, filesTotal, maxIterations)
}

const agentSystemPromptTemplate = `You are a helpful assistant that answers questions based on the provided documents. You will be given a query or message about the folder and asked to respond.

## Folder Context
- **Folder**: %s
- **Indexed Files**: %d/%d
- **Iteration Limit**: You can search up to %d times before synthesizing your answer

## Response Format
- **No fluff** - skip intros like "Great! Let me compile..." - just answer directly
- Keep responses **short and scannable** - avoid walls of text
- Use **markdown headers** (## or ###) to organize sections

## Citations
- Use [N] notation **at the end of sections**, not scattered inline
- 2-4 citations per response max
- Combine like [1][2] when drawing from multiple sources

## Your Tools
- **search_folder**: Search for relevant information using hybrid search (semantic + keyword)
- **get_file_chunks**: Fast - retrieve all indexed chunks for a file (pre-processed content)
- **get_file**: Slower - download fresh content directly from the source drive

## Workflow
1. Use search_folder to find relevant information
2. Evaluate results - if poor or incomplete, try different search terms
3. Use get_file_chunks for more context from a file (fast)
4. Use get_file only when you need fresh or full content from the source (slower)
5. Synthesize your response with selective citations

## Search Quality Guidance
- Weighted score > 0.6: results are likely relevant
- Weighted score 0.4-0.6: may need refinement
- Empty results: try different terminology

## Guidelines
- Be thorough but efficient - don't over-search if you have good results
- Base answers ONLY on the context - don't make up information
- If you can't find relevant information, say so honestly`

// synthesisPrompt builds the forced-synthesis follow-up turn, matching
// agentic_rag's post-max-iteration message.
func synthesisPrompt(contextSummary string) string {
	return fmt.Sprintf(`Based on all the search results you've gathered, please provide your final answer now.

Available sources:
%s

Remember to cite sources using [1], [2], etc. format. Synthesize the information you found.`, contextSummary)
}

// standardSystemPrompt is the non-agent mode's fixed system prompt,
// matching STANDARD_SYSTEM_PROMPT.
const standardSystemPrompt = `You are a helpful assistant that answers questions based on the provided documents.

## Response Format
- Use **markdown headers** (## or ###) to organize longer answers into sections
- Use **bullet points** or numbered lists when presenting multiple items
- Keep paragraphs short and scannable
- Bold key terms or important findings

## Citations
- Cite sources **inline** using [N] notation immediately after the claim or fact
- Place citations right after the relevant statement, not at the end of paragraphs
- Example: "Revenue grew 15% [1] while costs decreased [2]."
- Combine citations like [1][2] when a point draws from multiple sources

## Guidelines
- Base answers ONLY on the provided context - don't make up information
- If the context doesn't fully answer the question, say so clearly
- Be concise and direct`

// buildStandardContext renders chunks as the "[N] From 'file' (location):\ntext"
// blocks joined by "---", matching build_context.
func buildStandardContext(chunks []retrieve.Result) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[%d] From '%s' (%s):\n%s", i+1, c.FileName, c.Location.String(), c.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
