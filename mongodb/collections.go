package mongodb

const (
	ClientsCollection        = "oauth_clients"
	ScopesCollection         = "oauth_scopes"
	ResourceOwnersCollection = "resource_owners"
	TokensCollection         = "oauth_tokens"
	TicketsCollection        = "uma_tickets"
	ResourceSetsCollection   = "uma_resource_sets"
	PoliciesCollection       = "uma_policies"
	ConsentsCollection       = "consents"
	KeysCollection           = "json_web_keys"
)
