package echoapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/dto"
	serrors "github.com/halcyon-auth/halcyon/errors"
	"github.com/halcyon-auth/halcyon/services"
)

// OAuth2API holds the service dependencies of the HTTP boundary. Handlers
// only translate between the wire and the services; no protocol decisions
// are made here.
type OAuth2API struct {
	tokens        *services.TokenService
	authorize     *services.AuthorizeService
	permissions   *services.PermissionService
	discovery     *services.DiscoveryService
	keys          *services.KeySetService
	confirmations *services.ConfirmationCodeService
	owners        domain.ResourceOwnerRepository
}

// NewOAuth2API initializes the OAuth2 API.
func NewOAuth2API(
	tokens *services.TokenService,
	authorize *services.AuthorizeService,
	permissions *services.PermissionService,
	discovery *services.DiscoveryService,
	keys *services.KeySetService,
	confirmations *services.ConfirmationCodeService,
	owners domain.ResourceOwnerRepository,
) *OAuth2API {
	return &OAuth2API{
		tokens:        tokens,
		authorize:     authorize,
		permissions:   permissions,
		discovery:     discovery,
		keys:          keys,
		confirmations: confirmations,
		owners:        owners,
	}
}

// RegisterRoutes registers the OAuth2, OpenID Connect and UMA2 routes.
func (oa *OAuth2API) RegisterRoutes(e *echo.Echo) {
	e.GET("/authorize", oa.AuthorizeHandler)
	e.POST("/token", oa.TokenHandler)
	e.POST("/introspect", oa.IntrospectHandler)
	e.POST("/revoke", oa.RevokeHandler)
	e.GET("/jwks", oa.JWKSHandler)
	e.POST("/perm", oa.PermissionHandler)
	e.POST("/confirm", oa.ConfirmationSendHandler)
	e.POST("/confirm/verify", oa.ConfirmationVerifyHandler)

	e.GET("/.well-known/openid-configuration", oa.OpenIDConfigurationHandler)
	e.GET("/.well-known/jwks.json", oa.JWKSHandler)
}

// httpStatus maps the abstract status class carried by protocol errors onto
// an HTTP status code.
func httpStatus(class serrors.StatusClass) int {
	switch class {
	case serrors.StatusUnauthorized:
		return http.StatusUnauthorized
	case serrors.StatusInternalServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func oauthError(c echo.Context, oerr *serrors.OAuth2Error) error {
	if oerr.Status == serrors.StatusInternalServerError {
		log.Error().Err(oerr).Str("code", oerr.Code).Msg("request failed")
	}
	return c.JSON(httpStatus(oerr.Status), oerr)
}

// clientCredentials extracts the client id and secret from either the
// Authorization header (client_secret_basic) or the form body
// (client_secret_post). Basic credentials take precedence.
func clientCredentials(c echo.Context) (string, string) {
	if id, secret, ok := c.Request().BasicAuth(); ok {
		return id, secret
	}
	return c.FormValue("client_id"), c.FormValue("client_secret")
}

// TokenHandler handles the token endpoint for every supported grant type.
// Grant-specific validation lives in the token service; the handler only
// collects the form parameters.
func (oa *OAuth2API) TokenHandler(c echo.Context) error {
	clientID, clientSecret := clientCredentials(c)

	req := &dto.TokenRequest{
		GrantType:        domain.GrantType(c.FormValue("grant_type")),
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		Scope:            c.FormValue("scope"),
		Code:             c.FormValue("code"),
		RedirectURI:      c.FormValue("redirect_uri"),
		CodeVerifier:     c.FormValue("code_verifier"),
		Username:         c.FormValue("username"),
		Password:         c.FormValue("password"),
		RefreshToken:     c.FormValue("refresh_token"),
		Ticket:           c.FormValue("ticket"),
		ClaimToken:       c.FormValue("claim_token"),
		ClaimTokenFormat: c.FormValue("claim_token_format"),
	}

	granted, oerr := oa.tokens.Grant(c.Request().Context(), req)
	if oerr != nil {
		return oauthError(c, oerr)
	}

	log.Info().
		Str("client_id", clientID).
		Str("grant_type", string(req.GrantType)).
		Str("token_id", granted.ID).
		Msg("token granted")

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, dto.NewTokenResponse(granted))
}

// AuthorizeHandler handles authorization requests. The resource owner
// authenticates with login and password parameters; a missing or failed
// authentication is rejected by the authorize service. On success, the user
// agent is redirected back to the client with a code, tokens, or both.
func (oa *OAuth2API) AuthorizeHandler(c echo.Context) error {
	param := &dto.AuthorizationParameter{
		ClientID:            c.QueryParam("client_id"),
		Scope:               c.QueryParam("scope"),
		ResponseType:        c.QueryParam("response_type"),
		RedirectURL:         c.QueryParam("redirect_uri"),
		State:               c.QueryParam("state"),
		Nonce:               c.QueryParam("nonce"),
		CodeChallenge:       c.QueryParam("code_challenge"),
		CodeChallengeMethod: c.QueryParam("code_challenge_method"),
		Prompt:              c.QueryParam("prompt"),
		Claims:              c.QueryParam("claims"),
	}
	if maxAge := c.QueryParam("max_age"); maxAge != "" {
		param.MaxAge, _ = strconv.ParseInt(maxAge, 10, 64)
	}

	owner := oa.authenticateOwner(c)

	result, oerr := oa.authorize.Authorize(c.Request().Context(), param, owner)
	if oerr != nil {
		return oauthError(c, oerr)
	}

	return c.Redirect(http.StatusFound, buildRedirectURL(result))
}

// authenticateOwner resolves the resource owner from the login and password
// request parameters. A nil return means no authenticated owner.
func (oa *OAuth2API) authenticateOwner(c echo.Context) *domain.ResourceOwner {
	login := c.QueryParam("login")
	password := c.QueryParam("password")
	if login == "" {
		return nil
	}

	owner, err := oa.owners.Get(c.Request().Context(), login, password)
	if err != nil {
		log.Debug().Str("login", login).Msg("resource owner authentication failed")
		return nil
	}
	return owner
}

// buildRedirectURL appends the authorization result to the client's redirect
// URL. Codes travel in the query string; tokens travel in the fragment so
// they never reach the client's backend in server logs.
func buildRedirectURL(result *dto.AuthorizationResult) string {
	query := url.Values{}
	fragment := url.Values{}

	if result.Code != "" {
		query.Set("code", result.Code)
	}
	if result.AccessToken != "" {
		fragment.Set("access_token", result.AccessToken)
		fragment.Set("token_type", result.TokenType)
		fragment.Set("expires_in", strconv.Itoa(result.ExpiresIn))
	}
	if result.IDToken != "" {
		fragment.Set("id_token", result.IDToken)
	}
	if result.State != "" {
		if len(fragment) > 0 {
			fragment.Set("state", result.State)
		} else {
			query.Set("state", result.State)
		}
	}

	redirect := result.RedirectURL
	if len(query) > 0 {
		redirect += "?" + query.Encode()
	}
	if len(fragment) > 0 {
		redirect += "#" + fragment.Encode()
	}
	return redirect
}

// IntrospectHandler implements RFC 7662 token introspection. Unknown,
// expired and revoked tokens all yield the inactive response.
func (oa *OAuth2API) IntrospectHandler(c echo.Context) error {
	token := c.FormValue("token")
	if token == "" {
		return oauthError(c, serrors.NewInvalidRequest("the token parameter is required"))
	}

	result, oerr := oa.tokens.Introspect(c.Request().Context(), token, c.FormValue("token_type_hint"))
	if oerr != nil {
		return oauthError(c, oerr)
	}
	return c.JSON(http.StatusOK, result)
}

// RevokeHandler implements RFC 7009 token revocation. Revocation always
// succeeds from the caller's point of view, even for unknown tokens.
func (oa *OAuth2API) RevokeHandler(c echo.Context) error {
	token := c.FormValue("token")
	if token == "" {
		return oauthError(c, serrors.NewInvalidRequest("the token parameter is required"))
	}

	oa.tokens.Revoke(c.Request().Context(), token)
	return c.JSON(http.StatusOK, echo.Map{})
}

// PermissionHandler implements the UMA2 permission endpoint. The caller is
// the resource server, authenticated with a bearer token whose subject owns
// the referenced resource sets. Accepts a single permission request or an
// array of them.
func (oa *OAuth2API) PermissionHandler(c echo.Context) error {
	pat, ok := bearerToken(c)
	if !ok {
		return oauthError(c, serrors.NewUnauthorizedClient("a bearer token is required"))
	}

	introspection, oerr := oa.tokens.Introspect(c.Request().Context(), pat, "access_token")
	if oerr != nil {
		return oauthError(c, oerr)
	}
	if !introspection.Active {
		return oauthError(c, serrors.NewUnauthorizedClient("the bearer token is not active"))
	}

	requests, err := decodePermissionRequests(c)
	if err != nil {
		return oauthError(c, serrors.NewInvalidRequest("the request body could not be parsed"))
	}

	ticket, oerr := oa.permissions.RequestPermission(
		c.Request().Context(), introspection.Subject, introspection.ClientID, requests)
	if oerr != nil {
		return oauthError(c, oerr)
	}

	return c.JSON(http.StatusCreated, dto.PermissionResponse{TicketID: ticket.ID})
}

// ConfirmationSendHandler issues a confirmation code for the authenticated
// subject and delivers it to the phone number in the form body.
func (oa *OAuth2API) ConfirmationSendHandler(c echo.Context) error {
	subject, oerr := oa.bearerSubject(c)
	if oerr != nil {
		return oauthError(c, oerr)
	}

	phoneNumber := c.FormValue("phone_number")
	if phoneNumber == "" {
		return oauthError(c, serrors.NewInvalidRequest("the phone_number parameter is required"))
	}

	if _, oerr := oa.confirmations.Generate(c.Request().Context(), subject, phoneNumber); oerr != nil {
		return oauthError(c, oerr)
	}
	return c.JSON(http.StatusCreated, echo.Map{})
}

// ConfirmationVerifyHandler consumes a confirmation code for the
// authenticated subject.
func (oa *OAuth2API) ConfirmationVerifyHandler(c echo.Context) error {
	subject, oerr := oa.bearerSubject(c)
	if oerr != nil {
		return oauthError(c, oerr)
	}

	code := c.FormValue("code")
	if code == "" {
		return oauthError(c, serrors.NewInvalidRequest("the code parameter is required"))
	}

	if oerr := oa.confirmations.Confirm(c.Request().Context(), code, subject); oerr != nil {
		return oauthError(c, oerr)
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// bearerSubject resolves the subject of the bearer token on the request
// through introspection.
func (oa *OAuth2API) bearerSubject(c echo.Context) (string, *serrors.OAuth2Error) {
	token, ok := bearerToken(c)
	if !ok {
		return "", serrors.NewUnauthorizedClient("a bearer token is required")
	}

	introspection, oerr := oa.tokens.Introspect(c.Request().Context(), token, "access_token")
	if oerr != nil {
		return "", oerr
	}
	if !introspection.Active {
		return "", serrors.NewUnauthorizedClient("the bearer token is not active")
	}
	return introspection.Subject, nil
}

// JWKSHandler publishes the public signing and encryption keys.
func (oa *OAuth2API) JWKSHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, oa.keys.GetJWKS())
}

// OpenIDConfigurationHandler publishes the discovery document.
func (oa *OAuth2API) OpenIDConfigurationHandler(c echo.Context) error {
	config, oerr := oa.discovery.Configuration(c.Request().Context())
	if oerr != nil {
		return oauthError(c, oerr)
	}
	return c.JSON(http.StatusOK, config)
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func decodePermissionRequests(c echo.Context) ([]dto.PermissionRequest, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}

	var requests []dto.PermissionRequest
	if err := json.Unmarshal(body, &requests); err == nil {
		return requests, nil
	}

	// A single request object is also accepted.
	var single dto.PermissionRequest
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, err
	}
	return []dto.PermissionRequest{single}, nil
}
