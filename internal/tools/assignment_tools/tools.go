package assignment_tools

import (
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoist-mcp/internal/server"
	"github.com/teemow/todoist-mcp/internal/tools/common"
)

const (
	ManageAssignmentsToolName        = "manage-assignments"
	AssignmentEligibilityToolName    = "get-assignment-eligibility"
	FindProjectCollaboratorsToolName = "find-project-collaborators"
)

// RegisterAssignmentTools registers every assignment tool with s. In
// read-only mode manage-assignments stays registered but only performs
// dry runs.
func RegisterAssignmentTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	s.AddTool(newManageAssignmentsTool(sc.ReadOnly()),
		common.InstrumentedToolHandler(ManageAssignmentsToolName, sc, handleManageAssignments(sc)))

	s.AddTool(newAssignmentEligibilityTool(),
		common.InstrumentedToolHandler(AssignmentEligibilityToolName, sc, handleAssignmentEligibility(sc)))

	s.AddTool(newFindProjectCollaboratorsTool(),
		common.InstrumentedToolHandler(FindProjectCollaboratorsToolName, sc, handleFindProjectCollaborators(sc)))

	return nil
}
