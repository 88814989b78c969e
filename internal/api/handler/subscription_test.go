package handler

import (
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/pkg/response"
	"github.com/qs3c/trademint_server/internal/repository"
	"github.com/qs3c/trademint_server/internal/service"
	"github.com/qs3c/trademint_server/internal/testutil"
)

func TestSubscriptionHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	subscriptionService := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		repository.NewServiceRepository(db),
		notify.NewFake(),
		time.Second,
	)
	handler := NewSubscriptionHandler(subscriptionService)

	_, trader := testutil.TestTrader(t, db)
	svc := testutil.TestService(t, db, trader.ID)
	user := testutil.TestUser(t, db)
	stranger := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, svc.ID)

	router := gin.New()
	router.Use(mockAuth(user.ID))
	router.GET("/subscriptions", handler.List)
	router.GET("/subscriptions/:id", handler.Get)
	router.POST("/subscriptions/:id/cancel", handler.Cancel)

	resp := parseResponse(t, performRequest(router, "GET", "/subscriptions?status=ACTIVE", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, float64(1), resp.Data.(map[string]interface{})["total"])

	resp = parseResponse(t, performRequest(router, "GET", "/subscriptions?status=PAUSED", nil))
	assert.Equal(t, response.CodeParamError, resp.Code)

	path := fmt.Sprintf("/subscriptions/%d", sub.ID)
	resp = parseResponse(t, performRequest(router, "GET", path, nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, svc.Name, resp.Data.(map[string]interface{})["service_name"])

	strangerRouter := gin.New()
	strangerRouter.Use(mockAuth(stranger.ID))
	strangerRouter.GET("/subscriptions/:id", handler.Get)
	resp = parseResponse(t, performRequest(strangerRouter, "GET", path, nil))
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)

	resp = parseResponse(t, performRequest(router, "POST", path+"/cancel", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, model.SubscriptionCancelled, resp.Data.(map[string]interface{})["status"])

	resp = parseResponse(t, performRequest(router, "POST", path+"/cancel", nil))
	assert.Equal(t, response.CodeConflict, resp.Code)
}
