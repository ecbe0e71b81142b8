package services

import (
	"sort"
	"strings"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// FlowResolver maps a response_type set onto one of the three authorization
// flows. The table is built once and never mutated afterwards, so resolution
// is a pure function of the set's content and safe for concurrent use.
type FlowResolver struct {
	table map[string]domain.AuthorizationFlow
}

// NewFlowResolver builds the resolver with the fixed response-type table.
//
// The three-element combination code+id_token+token resolves to the implicit
// flow, not hybrid. That mapping is part of the observed wire behavior and is
// kept intact; see the matching test.
func NewFlowResolver() *FlowResolver {
	table := make(map[string]domain.AuthorizationFlow, 6)

	add := func(flow domain.AuthorizationFlow, types ...domain.ResponseType) {
		table[canonicalKey(types)] = flow
	}

	add(domain.AuthorizationCodeFlow, domain.ResponseTypeCode)
	add(domain.ImplicitFlow, domain.ResponseTypeIDToken)
	add(domain.ImplicitFlow, domain.ResponseTypeIDToken, domain.ResponseTypeToken)
	add(domain.HybridFlow, domain.ResponseTypeCode, domain.ResponseTypeIDToken)
	add(domain.HybridFlow, domain.ResponseTypeCode, domain.ResponseTypeToken)
	add(domain.ImplicitFlow, domain.ResponseTypeCode, domain.ResponseTypeIDToken, domain.ResponseTypeToken)

	return &FlowResolver{table: table}
}

// Resolve returns the flow for the given response types. Unknown
// combinations fail with invalid_request carrying the request state for
// client-side correlation.
func (r *FlowResolver) Resolve(responseTypes []domain.ResponseType, state string) (domain.AuthorizationFlow, *serrors.OAuth2Error) {
	if len(responseTypes) == 0 {
		return 0, serrors.NewInvalidRequest("the parameter response_type is missing").WithState(state)
	}

	flow, ok := r.table[canonicalKey(responseTypes)]
	if !ok {
		return 0, serrors.NewInvalidRequest("the response_type combination is not supported").WithState(state)
	}
	return flow, nil
}

// canonicalKey produces an order-independent, duplicate-free key for a
// response type set.
func canonicalKey(types []domain.ResponseType) string {
	seen := make(map[string]struct{}, len(types))
	names := make([]string, 0, len(types))
	for _, t := range types {
		name := string(t)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}
