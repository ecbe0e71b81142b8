package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
	"github.com/halcyon-auth/halcyon/events"
)

// AuthorizationStatus is the outcome of evaluating a ticket line against the
// resource set's policy rules.
type AuthorizationStatus int

const (
	// Authorized grants the requested scopes.
	Authorized AuthorizationStatus = iota
	// NotAuthorized denies the request outright.
	NotAuthorized
	// NeedInfo signals that the required claims are absent entirely, so the
	// client should obtain further claims (claims-gathering) and retry.
	NeedInfo
)

func (s AuthorizationStatus) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case NotAuthorized:
		return "not_authorized"
	case NeedInfo:
		return "need_info"
	default:
		return "unknown"
	}
}

// AuthorizationPolicyResult is the evaluation outcome for a single ticket
// line, carrying the principal claims it was decided over.
type AuthorizationPolicyResult struct {
	Status          AuthorizationStatus
	PrincipalClaims domain.Claims
	ErrorDetails    string
}

// ScriptRunner evaluates an opaque script rule as a boolean predicate over
// the requester's claims. Implementations are external collaborators.
type ScriptRunner interface {
	Run(ctx context.Context, script string, claims domain.Claims) (bool, error)
}

// PolicyService is the UMA policy evaluation engine: it decides whether a
// requesting party may access a protected resource.
type PolicyService struct {
	policies  domain.PolicyRepository
	consents  domain.ConsentRepository
	scripts   ScriptRunner
	publisher events.Publisher

	now func() time.Time
}

// NewPolicyService creates a policy engine over the given repositories.
// scripts may be nil; rules carrying a script then fail closed.
func NewPolicyService(
	policies domain.PolicyRepository,
	consents domain.ConsentRepository,
	scripts ScriptRunner,
	publisher events.Publisher,
) *PolicyService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PolicyService{
		policies:  policies,
		consents:  consents,
		scripts:   scripts,
		publisher: publisher,
		now:       time.Now,
	}
}

// Evaluate decides a whole ticket: every line must independently authorize
// for the overall result to be Authorized. An expired ticket fails before any
// rule runs. A NeedInfo on any line dominates a NotAuthorized on another,
// since the client may still satisfy the policy after claims gathering.
func (s *PolicyService) Evaluate(ctx context.Context, ticket *domain.Ticket, clientID string, requester domain.Claims) (*AuthorizationPolicyResult, *serrors.OAuth2Error) {
	if ticket.Expired(s.now()) {
		return nil, serrors.NewInvalidTicket("the ticket is expired")
	}

	needInfo := false
	var denied *AuthorizationPolicyResult
	for _, line := range ticket.Lines {
		result, oerr := s.Execute(ctx, line, clientID, ticket.ResourceOwner, requester)
		if oerr != nil {
			return nil, oerr
		}
		switch result.Status {
		case NotAuthorized:
			s.publisher.Publish(events.New(events.PolicyDenied, clientID, ticket.ResourceOwner, map[string]string{
				"resource_set_id": line.ResourceSetID,
			}))
			if denied == nil {
				denied = result
			}
		case NeedInfo:
			needInfo = true
		}
	}

	if needInfo {
		return &AuthorizationPolicyResult{Status: NeedInfo, PrincipalClaims: requester}, nil
	}
	if denied != nil {
		return denied, nil
	}

	s.publisher.Publish(events.New(events.PolicyAuthorized, clientID, ticket.ResourceOwner, nil))
	return &AuthorizationPolicyResult{Status: Authorized, PrincipalClaims: requester}, nil
}

// Execute evaluates one ticket line against the policy rules attached to its
// resource set.
func (s *PolicyService) Execute(ctx context.Context, line domain.TicketLine, clientID, owner string, requester domain.Claims) (*AuthorizationPolicyResult, *serrors.OAuth2Error) {
	policies, err := s.policies.GetByResourceSet(ctx, line.ResourceSetID)
	if err != nil {
		return nil, serrors.NewInternalError(err)
	}

	var rules []domain.PolicyRule
	for _, policy := range policies {
		rules = append(rules, policy.Rules...)
	}

	// No attached policy means the resource set is open.
	if len(rules) == 0 {
		return &AuthorizationPolicyResult{Status: Authorized, PrincipalClaims: requester}, nil
	}

	needInfo := false
	for _, rule := range rules {
		status, oerr := s.evaluateRule(ctx, rule, line, clientID, owner, requester)
		if oerr != nil {
			return nil, oerr
		}
		switch status {
		case Authorized:
			return &AuthorizationPolicyResult{Status: Authorized, PrincipalClaims: requester}, nil
		case NeedInfo:
			needInfo = true
		}
	}

	if needInfo {
		return &AuthorizationPolicyResult{
			Status:          NeedInfo,
			PrincipalClaims: requester,
			ErrorDetails:    "the required claims are not present",
		}, nil
	}
	return &AuthorizationPolicyResult{
		Status:          NotAuthorized,
		PrincipalClaims: requester,
		ErrorDetails:    "no policy rule authorizes the request",
	}, nil
}

// evaluateRule checks a single rule. The outcome is Authorized when every
// condition holds, NeedInfo when the rule's required claim types are absent
// from the requester entirely, and NotAuthorized when any condition fails
// with claims present.
func (s *PolicyService) evaluateRule(ctx context.Context, rule domain.PolicyRule, line domain.TicketLine, clientID, owner string, requester domain.Claims) (AuthorizationStatus, *serrors.OAuth2Error) {
	if !rule.AllowsClient(clientID) {
		return NotAuthorized, nil
	}
	if !rule.GrantsScopes(line.Scopes) {
		return NotAuthorized, nil
	}

	if len(rule.Claims) > 0 {
		present := 0
		matched := true
		for _, required := range rule.Claims {
			if !requester.Has(required.Type) {
				matched = false
				continue
			}
			present++
			if !claimValueMatches(requester, required) {
				matched = false
			}
		}
		// Absent entirely is a claims-gathering situation, not a denial.
		if present == 0 {
			return NeedInfo, nil
		}
		if !matched {
			return NotAuthorized, nil
		}
	}

	if rule.ConsentNeeded {
		consent, err := s.consents.Get(ctx, owner, clientID, line.ResourceSetID)
		if err != nil {
			if isNotFound(err) {
				return NotAuthorized, nil
			}
			return NotAuthorized, serrors.NewInternalError(err)
		}
		if consent == nil {
			return NotAuthorized, nil
		}
	}

	if rule.Script != "" {
		if s.scripts == nil {
			log.Warn().Str("rule_id", rule.ID).Msg("policy rule carries a script but no script runner is configured")
			return NotAuthorized, nil
		}
		ok, err := s.scripts.Run(ctx, rule.Script, requester)
		if err != nil {
			return NotAuthorized, serrors.NewUnhandledException(fmt.Errorf("script evaluation failed: %w", err))
		}
		if !ok {
			return NotAuthorized, nil
		}
	}

	return Authorized, nil
}

// claimValueMatches reports whether any of the requester's values for the
// required claim type equals the required value.
func claimValueMatches(requester domain.Claims, required domain.Claim) bool {
	for _, value := range requester.Values(required.Type) {
		if value == required.Value {
			return true
		}
	}
	return false
}
