package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lettermerge/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Instructions tells a client how the letter tools fit together.
const Instructions = `lettermerge fills an appraisal-letter template once per row of a staff ` +
	`spreadsheet (.xlsx or .csv) and packs the letters into a zip archive.

Call generate_documents with dry_run set first to check the table and see the ` +
	`file name each row will get. Run it again without dry_run to write the archive; ` +
	`set send only when the user asked for the letters to be emailed.

Use list_batches to find earlier runs, and read ` + uriScheme + `batches/{batchId} ` +
	`for one run's state, archive path and delivery outcomes.`

// shutdownTimeout bounds how long RunHTTP waits for open sessions.
const shutdownTimeout = 5 * time.Second

// Server exposes batch generation and batch history as MCP tools.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates an MCP server over the generate and batch services.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "lettermerge",
		Title:   "Appraisal letter generator",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, &mcp.ServerOptions{Instructions: Instructions}),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("MCP server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx ends.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}
