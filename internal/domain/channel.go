package domain

// Channel is a conversation space inside a workspace. Invite links may
// be scoped to a channel; membership itself is always workspace-level.
type Channel struct {
	Record
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	CreatedBy   string `json:"created_by"`
}
