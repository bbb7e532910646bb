// Command boardmcp serves the board agent's shape tools over MCP stdio so an
// external assistant can plan edits against a board file. The planned
// operations are written out when the session ends.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/inkboard/inkboard/internal/agent"
	"github.com/inkboard/inkboard/internal/shape"
)

func main() {
	boardPath := flag.String("board", "", "board JSON file holding an array of shape records")
	outPath := flag.String("out", "operations.json", "where the planned operations are written on exit")
	flag.Parse()

	// stdout carries the MCP transport
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	shapes, err := loadBoard(*boardPath)
	if err != nil {
		slog.Error("load board", "error", err)
		os.Exit(1)
	}

	shadow := agent.NewShadow(shape.SummarizeAll(shapes))
	toolset := agent.NewToolset(shadow)

	s := server.NewMCPServer(
		"inkboard-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.AddTools(toolset.Tools()...)

	slog.Info("serving board tools", "shapes", len(shapes), "tools", len(toolset.Tools()))
	serveErr := server.ServeStdio(s)

	n, err := writeOperations(*outPath, shadow.Operations())
	if err != nil {
		slog.Error("write operations", "error", err)
		os.Exit(1)
	}
	slog.Info("operations written", "path", *outPath, "count", n)

	if serveErr != nil {
		slog.Error("mcp server", "error", serveErr)
		os.Exit(1)
	}
}

// loadBoard reads shape records from path. An empty path is an empty board.
func loadBoard(path string) ([]shape.Shape, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board: %w", err)
	}
	var records []shape.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode board %s: %w", path, err)
	}
	return shape.Unwrap(records), nil
}

// writeOperations finalizes ops and writes them as indented JSON.
func writeOperations(path string, ops []agent.Operation) (int, error) {
	final := agent.Finalize(ops, nil)
	data, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode operations: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write operations: %w", err)
	}
	return len(final), nil
}
