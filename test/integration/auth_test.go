//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-tables/internal/apiclient"
	"school-tables/pkg/apierror"
)

func TestAuthFlowAndProtectedEndpoints(t *testing.T) {
	env := newTestEnv(t)
	username := env.createUser(t, "teacher", "students_view", "staff_view")
	ctx := context.Background()

	client := apiclient.New(env.server.URL, 5*time.Second, nil)
	tokens, err := client.Login(ctx, username, testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.ElementsMatch(t, []string{"students_view", "staff_view"}, tokens.User.Permissions)
	assert.True(t, client.Session().IsAuthenticated())

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, username, me.Username)

	names, err := client.Resources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"students", "staff"}, names)

	rotated, err := client.Refresh(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	require.NoError(t, client.Logout(ctx))
	assert.False(t, client.Session().IsAuthenticated())

	resp, body := doAuthRequest(t, http.MethodGet, env.server.URL+"/api/v1/students", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	username := env.createUser(t, "teacher", "students_view")

	client := apiclient.New(env.server.URL, 5*time.Second, nil)
	_, err := client.Login(context.Background(), username, "not-the-password")
	require.Error(t, err)

	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus)
	assert.False(t, client.Session().IsAuthenticated())
}

func TestSecurityHeadersOnResponses(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doAuthRequest(t, http.MethodGet, env.server.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
