package extraction

import "graphmem/internal/adapter"

// Tool schemas for the structured extraction calls. The LLM must answer
// through these, never as free text.

func extractEntitiesTool() adapter.Tool {
	return adapter.Tool{
		Name:        "extract_entities",
		Description: "Extract entities and their types from the text.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"entities": map[string]interface{}{
					"type":        "array",
					"description": "An array of entities with their types.",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"entity": map[string]interface{}{
								"type":        "string",
								"description": "The name or identifier of the entity.",
							},
							"entity_type": map[string]interface{}{
								"type":        "string",
								"description": "The type or category of the entity.",
							},
						},
						"required":             []string{"entity", "entity_type"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"entities"},
			"additionalProperties": false,
		},
	}
}

func establishRelationsTool() adapter.Tool {
	return adapter.Tool{
		Name:        "establish_relationships",
		Description: "Establish relationships among the entities based on the provided text.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"entities": map[string]interface{}{
					"type":        "array",
					"description": "An array of relationships between entities.",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"source": map[string]interface{}{
								"type":        "string",
								"description": "The source entity of the relationship.",
							},
							"relationship": map[string]interface{}{
								"type":        "string",
								"description": "The relationship between the source and destination entities.",
							},
							"destination": map[string]interface{}{
								"type":        "string",
								"description": "The destination entity of the relationship.",
							},
							"source_type": map[string]interface{}{
								"type":        "string",
								"description": "The type or category of the source entity.",
							},
							"destination_type": map[string]interface{}{
								"type":        "string",
								"description": "The type or category of the destination entity.",
							},
						},
						"required":             []string{"source", "relationship", "destination"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"entities"},
			"additionalProperties": false,
		},
	}
}

func deleteGraphMemoryTool() adapter.Tool {
	return adapter.Tool{
		Name:        "delete_graph_memory",
		Description: "Delete the relationship between two nodes. This function deletes the relationship between two nodes in the graph based on the provided new information.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "The identifier of the source node in the relationship.",
				},
				"relationship": map[string]interface{}{
					"type":        "string",
					"description": "The existing relationship between the source and destination nodes that needs to be deleted.",
				},
				"destination": map[string]interface{}{
					"type":        "string",
					"description": "The identifier of the destination node in the relationship.",
				},
			},
			"required":             []string{"source", "relationship", "destination"},
			"additionalProperties": false,
		},
	}
}
