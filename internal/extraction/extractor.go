// Package extraction turns raw text into structured graph candidates through
// an LLM's tool-call interface: an entity-type map, relationship triples, and
// deletion proposals. All three modes soft-fail: a service error or malformed
// payload degrades to an empty result at the call site.
package extraction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"graphmem/internal/adapter"
	"graphmem/internal/store"
	"graphmem/pkg/errors"
	"graphmem/pkg/logger"
)

// RelationCandidate is one proposed (source, relationship, destination)
// triple with the entity types the extractor assigned to the endpoints.
type RelationCandidate struct {
	Source          string
	Relationship    string
	Destination     string
	SourceType      string
	DestinationType string
}

// Generator is the completion surface the extractor needs; satisfied by
// adapter.LLMAdapter and by test fakes.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMsg string, tools []adapter.Tool) (*adapter.Response, error)
}

// Extractor drives the three structured extraction modes.
type Extractor struct {
	llm          Generator
	customPrompt string
	logger       *zap.Logger
}

// NewExtractor creates an extractor. customPrompt optionally appends a
// deployment-specific guideline to the relation-extraction prompt.
func NewExtractor(llm Generator, customPrompt string) *Extractor {
	return &Extractor{
		llm:          llm,
		customPrompt: customPrompt,
		logger:       logger.Get(),
	}
}

// ExtractEntities returns the normalized entity-name -> entity-type map for
// the text. selfRef is the tenant identifier substituted for I/me/my.
func (e *Extractor) ExtractEntities(ctx context.Context, text, selfRef string) (map[string]string, error) {
	resp, err := e.llm.Generate(ctx, entityPrompt(selfRef), text, []adapter.Tool{extractEntitiesTool()})
	if err != nil {
		return nil, errors.NewExtractionFailed("entities", err)
	}

	entityTypeMap, err := parseEntityMap(resp.ToolCalls)
	if err != nil {
		return nil, errors.NewExtractionFailed("entities", err)
	}

	e.logger.Debug("Entities extracted", zap.Int("count", len(entityTypeMap)))
	return entityTypeMap, nil
}

// ExtractRelations returns candidate triples among the given entities.
func (e *Extractor) ExtractRelations(ctx context.Context, text string, entities []string, selfRef string) ([]RelationCandidate, error) {
	userMsg := fmt.Sprintf("List of entities: %v. \n\nText: %s", entities, text)
	resp, err := e.llm.Generate(ctx, relationsPrompt(selfRef, e.customPrompt), userMsg, []adapter.Tool{establishRelationsTool()})
	if err != nil {
		return nil, errors.NewExtractionFailed("relations", err)
	}

	candidates, err := parseRelationList(resp.ToolCalls)
	if err != nil {
		return nil, errors.NewExtractionFailed("relations", err)
	}

	e.logger.Debug("Relations extracted", zap.Int("count", len(candidates)))
	return candidates, nil
}

// ProposeDeletions asks which existing relationships the new text supersedes.
// existingMemories is the serialized neighborhood, one triple per line.
func (e *Extractor) ProposeDeletions(ctx context.Context, existingMemories, newText, selfRef string) ([]store.Triple, error) {
	system, user := deletePrompts(existingMemories, newText, selfRef)
	resp, err := e.llm.Generate(ctx, system, user, []adapter.Tool{deleteGraphMemoryTool()})
	if err != nil {
		return nil, errors.NewExtractionFailed("deletions", err)
	}

	proposals := parseDeletionList(resp.ToolCalls)
	e.logger.Debug("Deletions proposed", zap.Int("count", len(proposals)))
	return proposals, nil
}

// parseEntityMap reads the extract_entities payload into a normalized map.
func parseEntityMap(calls []adapter.ToolCall) (map[string]string, error) {
	entityTypeMap := make(map[string]string)
	for _, call := range calls {
		if call.Name != "extract_entities" {
			continue
		}
		items, ok := call.Arguments["entities"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("entities payload is not an array")
		}
		for _, raw := range items {
			item, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			name := NormalizeName(stringField(item, "entity"))
			if name == "" {
				continue
			}
			entityTypeMap[name] = NormalizeEntityType(stringField(item, "entity_type"))
		}
	}
	if len(entityTypeMap) == 0 && len(calls) == 0 {
		return nil, errors.ErrNoToolCall
	}
	return entityTypeMap, nil
}

// parseRelationList reads the establish_relationships payload into
// normalized candidates. Items missing an endpoint or label are dropped.
func parseRelationList(calls []adapter.ToolCall) ([]RelationCandidate, error) {
	var candidates []RelationCandidate
	for _, call := range calls {
		if call.Name != "establish_relationships" {
			continue
		}
		items, ok := call.Arguments["entities"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("relationships payload is not an array")
		}
		for _, raw := range items {
			item, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			c := RelationCandidate{
				Source:          NormalizeName(stringField(item, "source")),
				Relationship:    NormalizeRelationship(stringField(item, "relationship")),
				Destination:     NormalizeName(stringField(item, "destination")),
				SourceType:      NormalizeEntityType(stringField(item, "source_type")),
				DestinationType: NormalizeEntityType(stringField(item, "destination_type")),
			}
			if c.Source == "" || c.Destination == "" {
				continue
			}
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// parseDeletionList reads delete_graph_memory calls, one proposed triple per
// call. Malformed calls are skipped; deletion is best-effort per item.
func parseDeletionList(calls []adapter.ToolCall) []store.Triple {
	var proposals []store.Triple
	for _, call := range calls {
		if call.Name != "delete_graph_memory" {
			continue
		}
		t := store.Triple{
			Source:       NormalizeName(stringField(call.Arguments, "source")),
			Relationship: NormalizeRelationship(stringField(call.Arguments, "relationship")),
			Destination:  NormalizeName(stringField(call.Arguments, "destination")),
		}
		if t.Source == "" || t.Destination == "" {
			continue
		}
		proposals = append(proposals, t)
	}
	return proposals
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
