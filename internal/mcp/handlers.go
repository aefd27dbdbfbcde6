package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coachx-ai/coachx/internal/generation"
	"github.com/coachx-ai/coachx/internal/query"
	"github.com/coachx-ai/coachx/internal/store"
)

// makeQueryHandler creates the query_knowledge tool handler.
// Flow: validate, embed the query, rank chunks, assemble the context block.
func makeQueryHandler(engine *query.Engine) func(
	context.Context, *mcp.CallToolRequest, QueryKnowledgeInput,
) (*mcp.CallToolResult, QueryKnowledgeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input QueryKnowledgeInput) (
		*mcp.CallToolResult, QueryKnowledgeOutput, error,
	) {
		results, err := engine.Search(ctx, input.Query, input.Category, input.TopK)
		if err != nil {
			return nil, QueryKnowledgeOutput{}, fmt.Errorf("knowledge query failed: %w", err)
		}

		output := QueryKnowledgeOutput{
			Context: query.FormatContext(results),
			Results: toResultEntries(results),
		}
		if len(results) == 0 {
			output.Message = "No matching knowledge found. Try broader phrasing or drop the category filter."
		}
		return nil, output, nil
	}
}

// makeCategoriesHandler creates the list_categories tool handler.
func makeCategoriesHandler(engine *query.Engine) func(
	context.Context, *mcp.CallToolRequest, ListCategoriesInput,
) (*mcp.CallToolResult, ListCategoriesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListCategoriesInput) (
		*mcp.CallToolResult, ListCategoriesOutput, error,
	) {
		categories, err := engine.Categories(ctx)
		if err != nil {
			return nil, ListCategoriesOutput{}, fmt.Errorf("failed to list categories: %w", err)
		}
		if categories == nil {
			categories = []string{}
		}
		return nil, ListCategoriesOutput{Categories: categories, Count: len(categories)}, nil
	}
}

// makeStatsHandler creates the knowledge_stats tool handler.
func makeStatsHandler(engine *query.Engine) func(
	context.Context, *mcp.CallToolRequest, KnowledgeStatsInput,
) (*mcp.CallToolResult, KnowledgeStatsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input KnowledgeStatsInput) (
		*mcp.CallToolResult, KnowledgeStatsOutput, error,
	) {
		stats, err := engine.Stats(ctx)
		if err != nil {
			return nil, KnowledgeStatsOutput{}, fmt.Errorf("failed to read index stats: %w", err)
		}
		categories := stats.Categories
		if categories == nil {
			categories = []string{}
		}
		return nil, KnowledgeStatsOutput{
			Chunks:         stats.Chunks,
			Categories:     categories,
			EmbeddingModel: stats.ModelID,
			ChunkSize:      stats.ChunkSize,
			ChunkOverlap:   stats.ChunkOverlap,
		}, nil
	}
}

// makeAdviceHandler creates the coach_advice tool handler.
// Retrieval failures degrade to a non-grounded answer instead of failing the
// whole request; validation failures are surfaced to the caller.
func makeAdviceHandler(engine *query.Engine, generator *generation.Generator) func(
	context.Context, *mcp.CallToolRequest, CoachAdviceInput,
) (*mcp.CallToolResult, CoachAdviceOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CoachAdviceInput) (
		*mcp.CallToolResult, CoachAdviceOutput, error,
	) {
		var results []store.QueryResult
		grounded := true

		results, err := engine.Search(ctx, input.Question, input.Category, 0)
		switch {
		case errors.Is(err, query.ErrEmptyQuery), errors.Is(err, query.ErrUnknownCategory):
			return nil, CoachAdviceOutput{}, err
		case err != nil:
			// Store-scoped fault: answer without grounding rather than fail.
			grounded = false
			results = nil
		}

		contextBlock := query.FormatContext(results)
		answer, err := generator.Answer(ctx, input.Question, contextBlock, input.Category)
		if err != nil {
			return nil, CoachAdviceOutput{}, fmt.Errorf("answer generation failed: %w", err)
		}

		return nil, CoachAdviceOutput{
			Answer:   answer,
			Context:  contextBlock,
			Results:  toResultEntries(results),
			Grounded: grounded && len(results) > 0,
		}, nil
	}
}

func toResultEntries(results []store.QueryResult) []ResultEntry {
	entries := make([]ResultEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, ResultEntry{
			Text:       r.Text,
			Category:   r.Category,
			SourceName: r.SourceName,
			ChunkIndex: r.ChunkIndex,
			Distance:   r.Distance,
		})
	}
	return entries
}
