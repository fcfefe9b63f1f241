package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/servicedesk"
	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/internal/runtime"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
	"github.com/aretw0/servicedesk/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FormsURI is the resource listing the served forms.
const FormsURI = "servicedesk://forms"

// StartResponse is the structured result of start_session.
type StartResponse struct {
	SessionID string         `json:"session_id" jsonschema_description:"The conversation id"`
	Events    []domain.Event `json:"events" jsonschema_description:"State mutations to apply, in order"`
}

// Engine is what the MCP server needs from the coordinator.
type Engine interface {
	ports.Coordinator
	Forms() []runtime.Form
}

// Server exposes the coordinator as MCP tools.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("servicedesk-mcp", strings.TrimSpace(servicedesk.Version)),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is done.
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
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping MCP server")
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Open a conversation. Returns the events that seed the session, including a remembered email."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation id")),
		mcp.WithOutputSchema[StartResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	turnTool := mcp.NewTool("process_turn",
		mcp.WithDescription("Validate the answer to the requested slot and advance the form. Runs the terminal action once every slot is filled."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation id")),
		mcp.WithString("form", mcp.Required(), mcp.Description("open_incident_form, incident_status_form or feedback_form")),
		mcp.WithString("requested_slot", mcp.Description("Slot the previous prompt asked for (omit on the first turn)")),
		mcp.WithString("text", mcp.Description("Free-text answer")),
		mcp.WithBoolean("confirm", mcp.Description("Yes/no answer; takes precedence over text")),
		mcp.WithString("slots", mcp.Description("JSON object of the current session slots")),
		mcp.WithOutputSchema[domain.TurnResult](),
	)
	s.mcpServer.AddTool(turnTool, mcp.NewStructuredToolHandler(s.handleProcessTurn))
}

func (s *Server) handleStartSession(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (StartResponse, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return StartResponse{}, fmt.Errorf("session_id is required")
	}
	return StartResponse{
		SessionID: sessionID,
		Events:    s.engine.Bootstrap(ctx, sessionID),
	}, nil
}

func (s *Server) handleProcessTurn(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (domain.TurnResult, error) {
	req := domain.TurnRequest{
		Candidate: domain.AbsentCandidate(),
		Slots:     make(map[string]any),
	}
	req.SessionID, _ = args["session_id"].(string)
	form, _ := args["form"].(string)
	req.Form = domain.FormName(form)
	req.RequestedSlot, _ = args["requested_slot"].(string)

	if slotsStr, ok := args["slots"].(string); ok && slotsStr != "" {
		if err := json.Unmarshal([]byte(slotsStr), &req.Slots); err != nil {
			return domain.TurnResult{}, fmt.Errorf("invalid slots: %w", err)
		}
	}

	if confirm, ok := args["confirm"].(bool); ok {
		req.Candidate = domain.ConfirmationCandidate(confirm)
	} else if text, ok := args["text"].(string); ok {
		clean, err := runner.SanitizeInput(text)
		if err != nil {
			s.logger.Warn("MCP process_turn: input rejected", "err", err, "size", len(text))
			return domain.TurnResult{}, fmt.Errorf("input rejected: %w", err)
		}
		req.Candidate = domain.TextCandidate(clean)
	}

	res, err := s.engine.Turn(ctx, req)
	if err != nil {
		return domain.TurnResult{}, err
	}
	return *res, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FormsURI, "Served forms",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Forms())
		if err != nil {
			return nil, fmt.Errorf("failed to encode forms: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FormsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
