package registry

import "strings"

// RoleCapabilities maps a role tag to the default capability tags an agent
// of that role is provisioned with when it is auto-registered during
// suggestion approval.
var RoleCapabilities = map[string][]string{
	"frontend":     {"ui", "components", "styling", "accessibility"},
	"backend":      {"api", "database", "server-logic", "performance"},
	"qa":           {"testing", "validation", "quality-assurance"},
	"devops":       {"deployment", "infrastructure", "monitoring"},
	"orchestrator": {"coordination", "task-routing", "scheduling"},
	"integration":  {"api-integration", "webhooks", "data-sync"},
}

// RoleForAgent derives a role tag from an agent identifier such as
// "backend-agent" or "qa-specialist". Unrecognised identifiers fall back
// to the generic integration role.
func RoleForAgent(agentID string) string {
	id := strings.ToLower(agentID)
	for role := range RoleCapabilities {
		if strings.Contains(id, role) {
			return role
		}
	}
	return "integration"
}
