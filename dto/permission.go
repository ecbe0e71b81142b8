package dto

// PermissionRequest is one (resource set, scopes) line in a UMA permission
// call. IDToken optionally identifies the requesting party; every request in
// a single call must carry the same (or no) identity token.
type PermissionRequest struct {
	ResourceSetID string   `json:"resource_set_id"`
	Scopes        []string `json:"scopes"`
	IDToken       string   `json:"id_token,omitempty"`
}

// PermissionResponse carries the issued ticket ID back to the client.
type PermissionResponse struct {
	TicketID string `json:"ticket"`
}
