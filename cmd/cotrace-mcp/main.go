// cotrace-mcp exposes the saved-trace store over MCP: query a trace by
// natural-language description, fetch one by session id, and list what is
// stored.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mbucher/cotrace/internal/completion"
	"github.com/mbucher/cotrace/internal/config"
	"github.com/mbucher/cotrace/internal/retrieval"
	"github.com/mbucher/cotrace/internal/store"
)

func main() {
	// Log to stderr so stdout is clean for JSON-RPC
	log.SetOutput(os.Stderr)
	log.SetPrefix("[cotrace-mcp] ")

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	dataDir := os.Getenv("COTRACE_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	cfg, err := config.Load(os.Getenv("COTRACE_CONFIG"))
	if err != nil {
		log.Printf("Warning: %v, using defaults", err)
	}

	db, err := store.Open(dataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	svc := buildService()
	engine := retrieval.New(svc, time.Duration(cfg.RetrievalTimeoutSeconds)*time.Second)

	s := server.NewMCPServer(
		"cotrace-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(queryTool(), handleQuery(db, engine))
	s.AddTool(getTool(), handleGet(db))
	s.AddTool(listTool(), handleList(db))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// buildService returns the completion service for AI-assisted matching, or
// nil when no provider is configured. Retrieval still works without one via
// the deterministic fallback.
func buildService() completion.Service {
	mode := completion.Mode(os.Getenv("COTRACE_MODE"))
	if mode == "" {
		return nil
	}
	svc, err := completion.New(mode, completion.Options{
		APIKey:      os.Getenv("COTRACE_API_KEY"),
		BaseURL:     os.Getenv("COTRACE_BASE_URL"),
		OllamaModel: os.Getenv("COTRACE_OLLAMA_MODEL"),
	})
	if err != nil {
		log.Printf("Warning: completion service unavailable: %v", err)
		return nil
	}
	return svc
}

func queryTool() mcp.Tool {
	return mcp.NewTool("trace_query",
		mcp.WithDescription("Find a saved reasoning trace by describing it in natural language. Returns the matching session id and its node texts, or reports no match."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text description of the trace to find"),
		),
	)
}

func handleQuery(db *store.DB, engine *retrieval.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		query, _ := args["query"].(string)
		if strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		labels, err := db.Labels()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load labels: %v", err)), nil
		}
		sessionID := engine.MatchQuery(ctx, query, labels)
		if sessionID == 0 {
			return mcp.NewToolResultText("No matching trace found."), nil
		}
		return renderSession(db, sessionID)
	}
}

func getTool() mcp.Tool {
	return mcp.NewTool("trace_get",
		mcp.WithDescription("Fetch a saved reasoning trace by its session id."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Numeric session id, as returned by trace_query or trace_list"),
		),
	)
}

func handleGet(db *store.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		raw, _ := args["session_id"].(string)
		sessionID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || sessionID <= 0 {
			return mcp.NewToolResultError("session_id must be a positive integer"), nil
		}
		return renderSession(db, sessionID)
	}
}

func listTool() mcp.Tool {
	return mcp.NewTool("trace_list",
		mcp.WithDescription("List all saved reasoning traces with their session ids and summaries."),
	)
}

func handleList(db *store.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessions, err := db.Sessions()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
		}
		if len(sessions) == 0 {
			return mcp.NewToolResultText("No traces saved."), nil
		}

		var b strings.Builder
		for _, s := range sessions {
			fmt.Fprintf(&b, "session %d [%s/%s] %d nodes: %s\n", s.ID, s.Mode, s.ModelName, s.NodeCount, s.Summary)
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func renderSession(db *store.DB, sessionID int64) (*mcp.CallToolResult, error) {
	g, err := db.LoadSession(sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load session %d: %v", sessionID, err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session %d (%d nodes, linear order):\n", sessionID, g.Len())
	for i, t := range g.Texts() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return mcp.NewToolResultText(b.String()), nil
}
