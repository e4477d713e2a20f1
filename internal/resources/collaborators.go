package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoist-mcp/internal/server"
)

const (
	// CollaboratorsURITemplate addresses the collaborator list of one project.
	CollaboratorsURITemplate = "todoist://projects/{projectId}/collaborators"

	collaboratorsURIPrefix = "todoist://projects/"
	collaboratorsURISuffix = "/collaborators"
	jsonMIMEType           = "application/json"
)

// RegisterResources adds every resource template to s.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) {
	tmpl := mcp.NewResourceTemplate(CollaboratorsURITemplate, "Project collaborators",
		mcp.WithTemplateDescription("Users that tasks in the project can be assigned to"),
		mcp.WithTemplateMIMEType(jsonMIMEType),
	)
	s.AddResourceTemplate(tmpl, handleCollaborators(sc))
}

func handleCollaborators(sc *server.ServerContext) mcpserver.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		projectID := projectIDFromRequest(request)
		if projectID == "" {
			return nil, fmt.Errorf("invalid collaborators URI %q", request.Params.URI)
		}

		collaborators := sc.Resolver().GetProjectCollaborators(ctx, projectID)
		body, err := json.Marshal(collaborators)
		if err != nil {
			return nil, fmt.Errorf("failed to encode collaborators: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: jsonMIMEType,
				Text:     string(body),
			},
		}, nil
	}
}

// projectIDFromRequest prefers the template variable and falls back to
// parsing the URI.
func projectIDFromRequest(request mcp.ReadResourceRequest) string {
	switch v := request.Params.Arguments["projectId"].(type) {
	case string:
		if v != "" {
			return v
		}
	case []string:
		if len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}

	id, ok := strings.CutPrefix(request.Params.URI, collaboratorsURIPrefix)
	if !ok {
		return ""
	}
	id, ok = strings.CutSuffix(id, collaboratorsURISuffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
