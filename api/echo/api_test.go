package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/dto"
	serrors "github.com/halcyon-auth/halcyon/errors"
	"github.com/halcyon-auth/halcyon/services"
)

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, httpStatus(serrors.StatusBadRequest))
	assert.Equal(t, http.StatusUnauthorized, httpStatus(serrors.StatusUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, httpStatus(serrors.StatusInternalServerError))
}

func TestBuildRedirectURL(t *testing.T) {
	codeOnly := buildRedirectURL(&dto.AuthorizationResult{
		RedirectURL: "https://client.example.com/cb",
		Code:        "abc",
		State:       "s-1",
	})
	assert.Equal(t, "https://client.example.com/cb?code=abc&state=s-1", codeOnly)

	implicit := buildRedirectURL(&dto.AuthorizationResult{
		RedirectURL: "https://client.example.com/cb",
		AccessToken: "at",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		IDToken:     "idt",
		State:       "s-1",
	})
	// Tokens travel in the fragment, never the query string.
	assert.NotContains(t, implicit, "?")
	require.Contains(t, implicit, "#")
	fragment := implicit[strings.Index(implicit, "#")+1:]
	assert.Contains(t, fragment, "access_token=at")
	assert.Contains(t, fragment, "id_token=idt")
	assert.Contains(t, fragment, "state=s-1")
}

func TestBearerToken(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/perm", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer my-token")
	c := e.NewContext(req, httptest.NewRecorder())

	token, ok := bearerToken(c)
	require.True(t, ok)
	assert.Equal(t, "my-token", token)

	req = httptest.NewRequest(http.MethodPost, "/perm", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic dXNlcjpwdw==")
	c = e.NewContext(req, httptest.NewRecorder())
	_, ok = bearerToken(c)
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodPost, "/perm", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	_, ok = bearerToken(c)
	assert.False(t, ok)
}

func TestDecodePermissionRequests(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/perm",
		strings.NewReader(`[{"resource_set_id":"rs1","scopes":["read"]},{"resource_set_id":"rs2","scopes":["view"]}]`))
	c := e.NewContext(req, httptest.NewRecorder())

	requests, err := decodePermissionRequests(c)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "rs1", requests[0].ResourceSetID)

	// A single object body is accepted too.
	req = httptest.NewRequest(http.MethodPost, "/perm",
		strings.NewReader(`{"resource_set_id":"rs1","scopes":["read"]}`))
	c = e.NewContext(req, httptest.NewRecorder())

	requests, err = decodePermissionRequests(c)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, []string{"read"}, requests[0].Scopes)

	req = httptest.NewRequest(http.MethodPost, "/perm", strings.NewReader(`not json`))
	c = e.NewContext(req, httptest.NewRecorder())
	_, err = decodePermissionRequests(c)
	assert.Error(t, err)
}

func TestJWKSHandler(t *testing.T) {
	keys, err := services.NewKeySetService(nil, nil, nil)
	require.NoError(t, err)
	api := &OAuth2API{keys: keys}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/jwks", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, api.JWKSHandler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Keys []map[string]interface{} `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Keys, 2)
	for _, key := range body.Keys {
		assert.NotEmpty(t, key["kid"])
		// Only public material is published.
		assert.NotContains(t, key, "d")
	}
}

type staticScopeRepo struct{ scopes []domain.Scope }

func (r staticScopeRepo) GetAll(context.Context) ([]domain.Scope, error) { return r.scopes, nil }
func (r staticScopeRepo) SearchByNames(context.Context, []string) ([]domain.Scope, error) {
	return r.scopes, nil
}

func TestOpenIDConfigurationHandler(t *testing.T) {
	discovery := services.NewDiscoveryService("https://auth.example.com", staticScopeRepo{
		scopes: []domain.Scope{{Name: "openid", IsExposed: true}},
	})
	api := &OAuth2API{discovery: discovery}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, api.OpenIDConfigurationHandler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var config services.OpenIDConfiguration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &config))
	assert.Equal(t, "https://auth.example.com", config.Issuer)
	assert.Equal(t, "https://auth.example.com/perm", config.PermissionEndpoint)
	assert.Contains(t, config.ScopesSupported, "openid")
}

func TestConfirmationHandlersRequireBearer(t *testing.T) {
	api := &OAuth2API{}
	e := echo.New()

	for _, handler := range []echo.HandlerFunc{api.ConfirmationSendHandler, api.ConfirmationVerifyHandler} {
		req := httptest.NewRequest(http.MethodPost, "/confirm", nil)
		rec := httptest.NewRecorder()

		require.NoError(t, handler(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}
