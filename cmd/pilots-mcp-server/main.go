package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"air-jarvis/internal/config"
	"air-jarvis/internal/pilotmcp"
	"air-jarvis/internal/pilots"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: .env file not loaded: %v", err)
	}
	cfg := config.New()

	store, err := pilots.NewStore(cfg.PilotsDir, pilots.WithLocking(cfg.RecordLocking))
	if err != nil {
		log.Fatalf("❌ Failed to open pilots directory: %v", err)
	}

	log.Printf("🚀 Starting Air Jarvis pilots MCP server (records in %s)", store.Dir())

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "air-jarvis-pilots",
		Version: "1.0.0",
	}, nil)
	names := pilotmcp.Register(server, pilotmcp.NewTools(store))

	log.Printf("📋 Registered %d tools: %s", len(names), strings.Join(names, ", "))
	log.Printf("🔗 Starting server on stdin/stdout...")

	// stdout carries the protocol; logs stay on stderr.
	if err := server.Run(context.Background(), mcp.NewStdioTransport()); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
