// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes lineage tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lineagemap/internal/lineage"
	"github.com/starford/lineagemap/internal/storage"
	"github.com/starford/lineagemap/internal/store"
)

const contractURI = "lineagemap://dataset-format"

// Server wraps the MCP server with lineage tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *lineage.Service
	meta  store.MetadataStore
	files storage.Provider
}

// New creates a new MCP server with all lineage tools registered.
// files may be nil, in which case the dataset tools are not offered.
func New(svc *lineage.Service, meta store.MetadataStore, files storage.Provider) *Server {
	s := &Server{svc: svc, meta: meta, files: files}

	s.mcp = server.NewMCPServer(
		"lineagemap",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_lineage_map",
		mcp.WithDescription("Render every transitive upstream source (from_map_nodes) and downstream "+
			"consumer (to_map_nodes) of a metadata entity. Nodes that close a cycle have circuit=true."),
		mcp.WithString("meta_id", mcp.Required(), mcp.Description("Metadata id of the root entity")),
	), s.getLineageMap)

	s.mcp.AddTool(mcp.NewTool("list_edges",
		mcp.WithDescription("List every lineage edge."),
	), s.listEdges)

	s.mcp.AddTool(mcp.NewTool("get_edge",
		mcp.WithDescription("Get one lineage edge by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Edge id")),
	), s.getEdge)

	s.mcp.AddTool(mcp.NewTool("create_edge",
		mcp.WithDescription("Create a directed edge FROM -> TO. No duplicate check is made; "+
			"prefer import_lineage for idempotent loads."),
		mcp.WithString("from_meta_id", mcp.Required(), mcp.Description("Metadata id of the source")),
		mcp.WithString("to_meta_id", mcp.Required(), mcp.Description("Metadata id of the consumer")),
		mcp.WithString("description", mcp.Description("Label of the transformation")),
	), s.createEdge)

	s.mcp.AddTool(mcp.NewTool("import_lineage",
		mcp.WithDescription("Upsert edges from a lineage dataset. Read the contract first via "+
			"get_dataset_contract or the "+contractURI+" resource."),
		mcp.WithString("dataset", mcp.Description("Dataset name (defaults to the configured dataset)")),
	), s.importLineage)

	s.mcp.AddTool(mcp.NewTool("search_metadata",
		mcp.WithDescription("Search metadata entities by name to find their ids."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchMetadata)

	s.mcp.AddTool(mcp.NewTool("get_dataset_contract",
		mcp.WithDescription("Returns the lineage dataset format contract. "+
			"Call this before writing or importing datasets."),
	), s.getDatasetContract)

	if files != nil {
		s.mcp.AddTool(mcp.NewTool("list_datasets",
			mcp.WithDescription("List the dataset files available for import."),
		), s.listDatasets)

		s.mcp.AddTool(mcp.NewTool("upload_dataset",
			mcp.WithDescription("Write a lineage dataset file. Give the file either as text in content "+
				"or as a base64 data: URI / http(s) URL in url."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Relative path, e.g. team/DEFAULT_LINEAGE_MAP.csv")),
			mcp.WithString("content", mcp.Description("File content as text (csv, yaml, json)")),
			mcp.WithString("url", mcp.Description("data: URI or http(s) URL of the file")),
			mcp.WithBoolean("overwrite", mcp.Description("Replace an existing file")),
		), s.uploadDataset)
	}

	// Resource: dataset format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Lineage Dataset Format Contract",
			mcp.WithResourceDescription("Columns and resolution rules of lineage datasets."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDatasetFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getLineageMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("meta_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	root, err := s.svc.GetLineageMap(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(root)
}

func (s *Server) listEdges(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	edges, err := s.svc.ListEdges(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(edges)
}

func (s *Server) getEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edge, err := s.svc.GetEdge(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(edge)
}

func (s *Server) createEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from_meta_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to_meta_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edge, err := s.svc.CreateEdge(ctx, from, to, req.GetString("description", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(edge)
}

func (s *Server) importLineage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.ImportLineage(ctx, req.GetString("dataset", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) searchMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.meta.SearchMetadata(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) listDatasets(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := s.files.List("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no datasets found"), nil
	}
	return jsonResult(refs)
}

func (s *Server) getDatasetContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DatasetFormatContract), nil
}

func (s *Server) readDatasetFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     DatasetFormatContract,
		},
	}, nil
}
