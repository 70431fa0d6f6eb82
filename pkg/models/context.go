package models

// Context keys consumed and produced by workers. The host pushes workspace
// state in under these keys via the orchestrator's SetContext; the research
// worker and scheduler write the research keys before subtask dispatch.
const (
	// ContextKeyCurrentFiles holds the open file paths ([]string).
	ContextKeyCurrentFiles = "currentFiles"
	// ContextKeyProjectType holds a project type tag (string).
	ContextKeyProjectType = "projectType"
	// ContextKeyWorkspaceInfo holds host workspace metadata.
	ContextKeyWorkspaceInfo = "workspaceInfo"
	// ContextKeyUserPreferences holds host user preferences.
	ContextKeyUserPreferences = "userPreferences"
	// ContextKeyResearchFindings holds the research worker's findings (string).
	ContextKeyResearchFindings = "researchFindings"
	// ContextKeyResearchReport holds the research worker's full report (string).
	ContextKeyResearchReport = "researchReport"
	// ContextKeyResearchEnhanced marks a subtask context as enriched (bool).
	ContextKeyResearchEnhanced = "researchEnhanced"
)
