package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for lettermerge resources.
	uriScheme = "lettermerge://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "batches/{batchId}",
		Name:        "batch",
		Description: "A recorded batch with its delivery outcomes",
		MIMEType:    "application/json",
	}, s.handleBatchResource)
}

// batchResource is the JSON body of a batch resource.
type batchResource struct {
	Batch      BatchOutput        `json:"batch"`
	Deliveries []deliveryResource `json:"deliveries"`
}

type deliveryResource struct {
	Recipient string `json:"recipient"`
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleBatchResource returns one run and its deliveries.
func (s *Server) handleBatchResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	batchID := extractBatchID(req.Params.URI)
	if batchID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	run, err := s.ports.Batches.Get(ctx, batchID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting batch: %w", err)
	}

	deliveries, err := s.ports.Batches.Deliveries(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}

	body := batchResource{
		Batch:      batchOutput(run),
		Deliveries: make([]deliveryResource, len(deliveries)),
	}
	for i, d := range deliveries {
		body.Deliveries[i] = deliveryResource{
			Recipient: d.Recipient,
			Filename:  d.Filename,
			Status:    d.Status.String(),
			MessageID: d.MessageID,
			Error:     d.Error,
		}
	}

	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling batch: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractBatchID extracts the ID from a URI like lettermerge://batches/{batchId}.
func extractBatchID(uri string) string {
	const prefix = uriScheme + "batches/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
