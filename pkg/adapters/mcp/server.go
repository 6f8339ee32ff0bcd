package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/internal/presentation/tui"
	"github.com/aretw0/reticula/pkg/newick"
)

// InferResponse is the structured result of the infer_network tool.
type InferResponse struct {
	Newick         string `json:"newick" jsonschema_description:"Rooted network in extended Newick"`
	Trees          int    `json:"trees" jsonschema_description:"Number of input trees"`
	Taxa           int    `json:"taxa" jsonschema_description:"Number of distinct taxa"`
	Reticulations  int    `json:"reticulations" jsonschema_description:"Reticulation nodes in the network"`
	Irreconcilable int    `json:"irreconcilable" jsonschema_description:"Quartets that the backbone tree could not display"`
	Cached         bool   `json:"cached" jsonschema_description:"Whether the result came from the cache"`
}

// InspectResponse is the structured result of the inspect_tree tool.
type InspectResponse struct {
	Drawing   string   `json:"drawing" jsonschema_description:"ASCII drawing of the tree"`
	Preorder  []string `json:"preorder" jsonschema_description:"Node labels in preorder; unlabelled nodes are '*'"`
	Postorder []string `json:"postorder" jsonschema_description:"Node labels in postorder; unlabelled nodes are '*'"`
	Taxa      []string `json:"taxa" jsonschema_description:"Sorted leaf labels"`
}

type inferArgs struct {
	Newick            string   `mapstructure:"newick"`
	Outgroup          string   `mapstructure:"outgroup"`
	ConflictThreshold *float64 `mapstructure:"conflict_threshold"`
}

type inspectArgs struct {
	Newick string `mapstructure:"newick"`
}

// Server exposes inference as MCP tools.
type Server struct {
	opts      []reticula.Option
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server. opts configure the engine used by
// every call; per-call arguments are appended to them.
func NewServer(logger *slog.Logger, opts ...reticula.Option) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		opts:      opts,
		logger:    logger,
		mcpServer: server.NewMCPServer("reticula-mcp", strings.TrimSpace(reticula.Version)),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	inferTool := mcp.NewTool("infer_network",
		mcp.WithDescription("Infer a rooted phylogenetic network from one or more Newick gene trees. "+
			"Conflicting quartet signal becomes reticulation edges, written as #Hn tags in the extended Newick output."),
		mcp.WithString("newick", mcp.Required(), mcp.Description("Semicolon-terminated Newick trees, e.g. ((A,B),(C,D));((A,C),(B,D));")),
		mcp.WithString("outgroup", mcp.Description("Taxon to root on (optional; midpoint rooting otherwise)")),
		mcp.WithNumber("conflict_threshold", mcp.Description("Relative weight at which an alternative quartet topology conflicts (default 1)")),
		mcp.WithOutputSchema[InferResponse](),
	)
	s.mcpServer.AddTool(inferTool, mcp.NewStructuredToolHandler(s.handleInfer))

	inspectTool := mcp.NewTool("inspect_tree",
		mcp.WithDescription("Parse a single Newick tree and show its structure and traversal orders."),
		mcp.WithString("newick", mcp.Required(), mcp.Description("One Newick tree")),
		mcp.WithOutputSchema[InspectResponse](),
	)
	s.mcpServer.AddTool(inspectTool, mcp.NewStructuredToolHandler(s.handleInspect))
}

func (s *Server) handleInfer(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (InferResponse, error) {
	var in inferArgs
	if err := decode(args, &in); err != nil {
		return InferResponse{}, err
	}
	if strings.TrimSpace(in.Newick) == "" {
		return InferResponse{}, errors.New("argument \"newick\" is required")
	}

	opts := append([]reticula.Option(nil), s.opts...)
	opts = append(opts, reticula.WithLogger(s.logger))
	if in.Outgroup != "" {
		opts = append(opts, reticula.WithOutgroup(in.Outgroup))
	}
	if in.ConflictThreshold != nil {
		opts = append(opts, reticula.WithConflictThreshold(*in.ConflictThreshold))
	}

	inf, err := reticula.New(opts...).Infer(ctx, in.Newick)
	if err != nil {
		s.logger.Warn("MCP infer_network failed", "error", err, "kind", reticula.Kind(err))
		return InferResponse{}, fmt.Errorf("%s: %w", reticula.Kind(err), err)
	}
	return InferResponse{
		Newick:         inf.Newick,
		Trees:          inf.Trees,
		Taxa:           inf.Taxa,
		Reticulations:  inf.Reticulations,
		Irreconcilable: inf.Irreconcilable,
		Cached:         inf.Cached,
	}, nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (InspectResponse, error) {
	var in inspectArgs
	if err := decode(args, &in); err != nil {
		return InspectResponse{}, err
	}
	t, err := newick.Parse(in.Newick)
	if err != nil {
		return InspectResponse{}, fmt.Errorf("%s: %w", reticula.Kind(err), err)
	}

	label := func(l string) string {
		if l == "" {
			return "*"
		}
		return l
	}
	resp := InspectResponse{
		Drawing: tui.DrawTree(t, tui.Palette{}),
		Taxa:    t.Taxa(),
	}
	for _, id := range t.Preorder() {
		resp.Preorder = append(resp.Preorder, label(t.Label(id)))
	}
	for _, id := range t.Postorder() {
		resp.Postorder = append(resp.Postorder, label(t.Label(id)))
	}
	return resp, nil
}

// decode maps loosely typed tool arguments onto a struct, rejecting
// unknown keys.
func decode(args map[string]interface{}, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
