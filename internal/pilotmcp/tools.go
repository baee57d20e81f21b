// Package pilotmcp exposes read-only pilot record tools over MCP.
package pilotmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"air-jarvis/internal/pilots"
)

// RecordParams selects a pilot by display name.
type RecordParams struct {
	Name string `json:"name" mcp:"the pilot's display name, e.g. 'Jane Doe'"`
}

// ListParams takes no arguments.
type ListParams struct{}

// Tools serves MCP tool calls from a record store. It never writes.
type Tools struct {
	store *pilots.Store
}

func NewTools(store *pilots.Store) *Tools {
	return &Tools{store: store}
}

// Register adds every tool to server and returns their names.
func Register(server *mcp.Server, t *Tools) []string {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pilot_get_record",
		Description: "Returns the full stored record of a pilot: biography, flights, weather, questionnaire, emotion and analysis",
	}, t.GetRecord)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pilot_list",
		Description: "Lists every stored pilot with flight count, last update and latest readiness score",
	}, t.List)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pilot_get_analysis",
		Description: "Returns the stored readiness analysis of a pilot's current flight without computing a new one",
	}, t.GetAnalysis)

	return []string{"pilot_get_record", "pilot_list", "pilot_get_analysis"}
}

func (t *Tools) GetRecord(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[RecordParams]) (*mcp.CallToolResultFor[any], error) {
	rec, err := t.store.Get(ctx, params.Arguments.Name)
	if err != nil {
		return errorResult("❌ %v", err), nil
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errorResult("❌ Failed to encode record: %v", err), nil
	}
	return textResult(string(data)), nil
}

func (t *Tools) List(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ListParams]) (*mcp.CallToolResultFor[any], error) {
	list, err := t.store.List(ctx)
	if err != nil {
		return errorResult("❌ Failed to list pilots: %v", err), nil
	}
	if len(list) == 0 {
		return textResult("No pilots stored yet"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d pilots:\n\n", len(list))
	for i, p := range list {
		fmt.Fprintf(&b, "%d. %s (key: %s)\n   Flights: %d, last updated %s\n",
			i+1, p.Name, p.Key, p.Flights, p.LastUpdated.UTC().Format("2006-01-02 15:04 MST"))
		if p.LatestScore != nil {
			fmt.Fprintf(&b, "   Readiness score: %.0f/100\n", *p.LatestScore)
		}
		b.WriteString("\n")
	}
	return textResult(b.String()), nil
}

func (t *Tools) GetAnalysis(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[RecordParams]) (*mcp.CallToolResultFor[any], error) {
	rec, err := t.store.Get(ctx, params.Arguments.Name)
	if err != nil {
		return errorResult("❌ %v", err), nil
	}
	current := rec.CurrentFlight()
	if current == nil {
		return textResult(fmt.Sprintf("%s has no flights yet", rec.Name)), nil
	}
	if current.Analysis == nil {
		return textResult(fmt.Sprintf("No readiness analysis yet for %s's current flight (flight %d)", rec.Name, len(rec.Flights))), nil
	}
	a := current.Analysis
	return textResult(fmt.Sprintf("Readiness for %s: %.0f/100 (analyzed %s)\n\n%s",
		rec.Name, a.Score, a.AnalyzedAt.UTC().Format("2006-01-02 15:04 MST"), a.Explanation)), nil
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
