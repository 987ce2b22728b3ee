package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmorvan/bankdesk/internal/models"
)

func TestTicketLifecycle(t *testing.T) {
	resetState(t)
	ctx := context.Background()

	requester, err := SeedUser(ctx, testDB.Pool, TestUserEmail("requester"), TestPassword, models.RoleUser, true)
	require.NoError(t, err)
	support, err := SeedUser(ctx, testDB.Pool, TestUserEmail("support"), TestPassword, models.RoleSupport, true)
	require.NoError(t, err)
	stranger, err := SeedUser(ctx, testDB.Pool, TestUserEmail("stranger"), TestPassword, models.RoleUser, true)
	require.NoError(t, err)

	requesterToken, err := testServer.TokenFor(requester)
	require.NoError(t, err)
	supportToken, err := testServer.TokenFor(support)
	require.NoError(t, err)
	strangerToken, err := testServer.TokenFor(stranger)
	require.NoError(t, err)

	// Requester opens a ticket
	resp, err := testServer.RequestWithAuth(http.MethodPost, "/api/tickets", requesterToken, map[string]interface{}{
		"title":       "VPN drops every hour",
		"description": "Connection resets on the trading floor",
		"category":    "network",
		"priority":    "high",
		"tags":        []string{"vpn", "network"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var ticket models.Ticket
	require.NoError(t, ParseJSONResponse(resp, &ticket))
	assert.Equal(t, models.TicketStatusOpen, ticket.Status)
	assert.Equal(t, requester.ID, ticket.CreatedBy)
	assert.ElementsMatch(t, []string{"vpn", "network"}, ticket.Tags)

	// Another requester cannot see it
	resp, err = testServer.RequestWithAuth(http.MethodGet, "/api/tickets/"+ticket.ID, strangerToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Support assigns themselves and resolves
	resp, err = testServer.RequestWithAuth(http.MethodPut, "/api/tickets/"+ticket.ID, supportToken, map[string]interface{}{
		"status":      "resolved",
		"assigned_to": support.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var resolved models.Ticket
	require.NoError(t, ParseJSONResponse(resp, &resolved))
	assert.Equal(t, models.TicketStatusResolved, resolved.Status)
	require.NotNil(t, resolved.AssignedTo)
	assert.Equal(t, support.ID, *resolved.AssignedTo)
	assert.NotNil(t, resolved.ResolvedAt)

	// Requester comments on their own ticket
	resp, err = testServer.RequestWithAuth(http.MethodPost, "/api/tickets/"+ticket.ID+"/comments", requesterToken, map[string]interface{}{
		"body": "Still happening after the fix",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = testServer.RequestWithAuth(http.MethodGet, "/api/tickets/"+ticket.ID+"/comments", requesterToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var comments []models.TicketComment
	require.NoError(t, ParseJSONResponse(resp, &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "Still happening after the fix", comments[0].Body)
	assert.Equal(t, requester.Name, comments[0].AuthorName)
}

func TestTicketListScopedToRequester(t *testing.T) {
	resetState(t)
	ctx := context.Background()

	alice, err := SeedUser(ctx, testDB.Pool, TestUserEmail("alice"), TestPassword, models.RoleUser, true)
	require.NoError(t, err)
	bob, err := SeedUser(ctx, testDB.Pool, TestUserEmail("bob"), TestPassword, models.RoleUser, true)
	require.NoError(t, err)
	support, err := SeedUser(ctx, testDB.Pool, TestUserEmail("agent"), TestPassword, models.RoleSupport, true)
	require.NoError(t, err)

	aliceToken, err := testServer.TokenFor(alice)
	require.NoError(t, err)
	bobToken, err := testServer.TokenFor(bob)
	require.NoError(t, err)
	supportToken, err := testServer.TokenFor(support)
	require.NoError(t, err)

	for _, tok := range []string{aliceToken, bobToken} {
		resp, err := testServer.RequestWithAuth(http.MethodPost, "/api/tickets", tok, map[string]interface{}{
			"title": "Workstation issue",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	// Requesters see only their own tickets
	resp, err := testServer.RequestWithAuth(http.MethodGet, "/api/tickets", aliceToken, nil)
	require.NoError(t, err)
	var aliceTickets []models.Ticket
	require.NoError(t, ParseJSONResponse(resp, &aliceTickets))
	require.Len(t, aliceTickets, 1)
	assert.Equal(t, alice.ID, aliceTickets[0].CreatedBy)

	// Staff see everything
	resp, err = testServer.RequestWithAuth(http.MethodGet, "/api/tickets", supportToken, nil)
	require.NoError(t, err)
	var allTickets []models.Ticket
	require.NoError(t, ParseJSONResponse(resp, &allTickets))
	assert.Len(t, allTickets, 2)
}

func TestTicketStatsRequiresStaffRole(t *testing.T) {
	resetState(t)
	ctx := context.Background()

	user, err := SeedUser(ctx, testDB.Pool, TestUserEmail("nostats"), TestPassword, models.RoleUser, true)
	require.NoError(t, err)
	token, err := testServer.TokenFor(user)
	require.NoError(t, err)

	resp, err := testServer.RequestWithAuth(http.MethodGet, "/api/tickets/stats", token, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
