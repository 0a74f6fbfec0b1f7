package extraction

import (
	"fmt"
	"strings"
)

// entityPrompt builds the system prompt for entity-only extraction. The
// tenant's own identifier stands in for self references so "I like tennis"
// produces a node for the tenant, not for the word "I".
func entityPrompt(selfRef string) string {
	if selfRef == "" {
		selfRef = "USER"
	}
	return fmt.Sprintf("You are a smart assistant who understands entities and their types in a given text. "+
		"If user message contains self reference such as 'I', 'me', 'my' etc. then use %s as the source entity. "+
		"Extract all the entities from the text. ***DO NOT*** answer the question itself if the given text is a question.", selfRef)
}

const relationsPromptTemplate = `You are an advanced algorithm designed to extract structured information from text to construct knowledge graphs. Your goal is to capture comprehensive information while maintaining accuracy. Follow these key principles:

1. Extract only explicitly stated information from the text.
2. Establish relationships among the entities provided.
3. Use "USER_ID" as the source entity for any self-references (I, me, my, etc.) in user messages.
CUSTOM_PROMPT

Relationships:
    - Use consistent, general, and timeless relationship types.
    - Example: Prefer "professor" over "became_professor".
    - Relationships should only be established among the entities explicitly mentioned in the user message.

Entity Consistency:
    - Ensure that relationships are coherent and logically align with the context of the message.
    - Maintain consistent naming for entities across the extracted data.

Strive to construct a coherent and easily understandable knowledge graph by establishing all the relationships among the entities and adherence to the user's context.

Adhere strictly to these guidelines to ensure high-quality knowledge graph extraction.`

// relationsPrompt substitutes the tenant identifier and an optional custom
// guideline into the relation-extraction system prompt.
func relationsPrompt(selfRef, customPrompt string) string {
	if selfRef == "" {
		selfRef = "USER"
	}
	prompt := strings.ReplaceAll(relationsPromptTemplate, "USER_ID", selfRef)
	if customPrompt != "" {
		prompt = strings.ReplaceAll(prompt, "CUSTOM_PROMPT", fmt.Sprintf("4. %s", customPrompt))
	} else {
		prompt = strings.ReplaceAll(prompt, "CUSTOM_PROMPT", "")
	}
	return prompt
}

const deleteRelationsPromptTemplate = `You are a graph memory manager specializing in identifying, managing, and optimizing relationships within graph-based memories. Your primary task is to analyze a list of existing relationships and determine which ones should be deleted based on the new information provided.

Input:
1. Existing Graph Memories: A list of current graph memories, each containing source, relationship, and destination information.
2. New Text: The new information to be integrated into the existing graph structure.
3. Use "USER_ID" as node for any self-references (I, me, my, etc.) in user messages.

Guidelines:
1. Identification: Use the new information to evaluate existing relationships in the memory graph.
2. Deletion Criteria: Delete a relationship only if it directly contradicts or is made obsolete by the new information.
3. Do Not Delete: Do not delete relationships that are unrelated to the new information, or that are still valid alongside it.
4. Temporal Awareness: Prioritize recency; if new information supersedes an older relationship, mark the older one for deletion.

Provide the deletions through the delete_graph_memory tool, one call per relationship to delete. If nothing should be deleted, make no tool calls.`

// deletePrompts builds the system and user messages for deletion planning.
// The existing neighborhood is serialized one relationship per line as
// "source -- relationship -- destination".
func deletePrompts(existingMemories, newText, selfRef string) (system string, user string) {
	if selfRef == "" {
		selfRef = "USER"
	}
	system = strings.ReplaceAll(deleteRelationsPromptTemplate, "USER_ID", selfRef)
	user = fmt.Sprintf("Here are the existing memories: %s \n\n New Information: %s", existingMemories, newText)
	return system, user
}
