package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/model/dto"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/repository"
	"github.com/qs3c/trademint_server/internal/testutil"
)

func setupCatalogService(t *testing.T, sink notify.Sink) (*CatalogService, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	svc := NewCatalogService(
		repository.NewServiceRepository(db),
		repository.NewTraderRepository(db),
		sink,
		testPaymentConfig(),
		time.Second,
	)
	return svc, db
}

func TestCatalogService_CreateService(t *testing.T) {
	svc, db := setupCatalogService(t, notify.NewFake())

	traderUser, trader := testutil.TestTrader(t, db)
	pendingUser, _ := testutil.TestTrader(t, db, testutil.WithApproved(false))
	client := testutil.TestUser(t, db)

	item, err := svc.CreateService(traderUser.ID, &dto.CreateServiceRequest{
		Name:         "  Intraday Calls ",
		Price:        2500,
		DurationDays: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, "Intraday Calls", item.Name)
	assert.Equal(t, trader.ID, item.TraderID)
	assert.True(t, item.IsActive)

	tiered, err := svc.CreateService(traderUser.ID, &dto.CreateServiceRequest{
		Name:         "Positional",
		Price:        4000,
		DurationDays: 45,
		PricingTiers: []model.PricingTier{{Price: 4000, DurationDays: 45}, {Price: 7000, DurationDays: 100}},
	})
	require.NoError(t, err)
	assert.Len(t, tiered.PricingTiers, 2)

	tests := []struct {
		name    string
		userID  int64
		req     *dto.CreateServiceRequest
		wantErr error
	}{
		{"client", client.ID, &dto.CreateServiceRequest{Name: "x", Price: 1, DurationDays: 30}, ErrNotApprovedTrader},
		{"unapproved trader", pendingUser.ID, &dto.CreateServiceRequest{Name: "x", Price: 1, DurationDays: 30}, ErrNotApprovedTrader},
		{"duration not allowed", traderUser.ID, &dto.CreateServiceRequest{Name: "x", Price: 1, DurationDays: 45}, ErrInvalidTerms},
		{"duplicate tier", traderUser.ID, &dto.CreateServiceRequest{Name: "x", Price: 1, DurationDays: 45,
			PricingTiers: []model.PricingTier{{Price: 1, DurationDays: 45}, {Price: 2, DurationDays: 45}}}, ErrInvalidTerms},
		{"bad tier price", traderUser.ID, &dto.CreateServiceRequest{Name: "x", Price: 1, DurationDays: 45,
			PricingTiers: []model.PricingTier{{Price: 0, DurationDays: 45}}}, ErrInvalidTerms},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateService(tt.userID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	mine, err := svc.ListMine(traderUser.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestCatalogService_Deactivate(t *testing.T) {
	svc, db := setupCatalogService(t, notify.NewFake())

	ownerUser, owner := testutil.TestTrader(t, db)
	otherUser, _ := testutil.TestTrader(t, db)
	admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))
	service := testutil.TestService(t, db, owner.ID)
	second := testutil.TestService(t, db, owner.ID)
	subscriber := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, subscriber.ID, service.ID)

	err := svc.Deactivate(otherUser.ID, model.RoleTrader, service.ID)
	assert.ErrorIs(t, err, ErrServiceNotOwned)

	require.NoError(t, svc.Deactivate(ownerUser.ID, model.RoleTrader, service.ID))
	require.NoError(t, svc.Deactivate(ownerUser.ID, model.RoleTrader, service.ID))
	require.NoError(t, svc.Deactivate(admin.ID, model.RoleAdmin, second.ID))

	var got model.Service
	require.NoError(t, db.First(&got, service.ID).Error)
	assert.False(t, got.IsActive)
	require.NoError(t, db.First(&got, second.ID).Error)
	assert.False(t, got.IsActive)

	// 已有订阅不受影响
	assert.Equal(t, model.SubscriptionActive, reloadSubscription(t, db, sub.ID).Status)

	err = svc.Deactivate(admin.ID, model.RoleAdmin, 999999)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestCatalogService_BindChannel(t *testing.T) {
	sink := notify.NewFake()
	svc, db := setupCatalogService(t, sink)

	ownerUser, owner := testutil.TestTrader(t, db)
	otherUser, _ := testutil.TestTrader(t, db)
	service := testutil.TestService(t, db, owner.ID)

	item, err := svc.BindChannel(context.Background(), ownerUser.ID, service.ID, &dto.ChannelRequest{ChannelID: "-100999"})
	require.NoError(t, err)
	require.NotNil(t, item.ChannelID)
	assert.Equal(t, "-100999", *item.ChannelID)
	assert.Len(t, sink.Calls("IsOperatorMember"), 1)

	created, err := svc.BindChannel(context.Background(), ownerUser.ID, service.ID, &dto.ChannelRequest{})
	require.NoError(t, err)
	require.NotNil(t, created.ChannelID)
	calls := sink.Calls("CreateChannel")
	require.Len(t, calls, 1)
	assert.Equal(t, service.Name, calls[0].Target)

	_, err = svc.BindChannel(context.Background(), otherUser.ID, service.ID, &dto.ChannelRequest{ChannelID: "-1001"})
	assert.ErrorIs(t, err, ErrServiceNotOwned)

	sink.Operator = false
	_, err = svc.BindChannel(context.Background(), ownerUser.ID, service.ID, &dto.ChannelRequest{ChannelID: "-100111"})
	assert.ErrorIs(t, err, ErrNotChannelOperator)

	sink.Fail("CreateChannel", notify.ErrUnsupported)
	_, err = svc.BindChannel(context.Background(), ownerUser.ID, service.ID, &dto.ChannelRequest{Title: "New"})
	assert.ErrorIs(t, err, ErrChannelUnsupported)

	sink.Fail("IsOperatorMember", errors.New("timeout"))
	_, err = svc.BindChannel(context.Background(), ownerUser.ID, service.ID, &dto.ChannelRequest{ChannelID: "-100111"})
	assert.ErrorIs(t, err, ErrChannelUnavailable)
	assert.ErrorIs(t, err, ErrExternalServiceDegraded)
}

func TestCatalogService_InviteLinkAndInfo(t *testing.T) {
	sink := notify.NewFake()
	svc, db := setupCatalogService(t, sink)

	ownerUser, owner := testutil.TestTrader(t, db)
	bound := testutil.TestService(t, db, owner.ID, testutil.WithChannel("-100444"))
	unbound := testutil.TestService(t, db, owner.ID)

	url, err := svc.InviteLink(context.Background(), ownerUser.ID, bound.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+invite_-100444", url)

	info, err := svc.ChannelInfo(context.Background(), ownerUser.ID, bound.ID)
	require.NoError(t, err)
	assert.Equal(t, "-100444", info.ID)

	_, err = svc.InviteLink(context.Background(), ownerUser.ID, unbound.ID, false)
	assert.ErrorIs(t, err, ErrChannelNotBound)
	_, err = svc.ChannelInfo(context.Background(), ownerUser.ID, unbound.ID)
	assert.ErrorIs(t, err, ErrChannelNotBound)

	sink.Fail("CreateInviteLink", errors.New("forbidden"))
	_, err = svc.InviteLink(context.Background(), ownerUser.ID, bound.ID, false)
	assert.ErrorIs(t, err, ErrChannelUnavailable)
}

func TestCatalogService_ApproveAndRevoke(t *testing.T) {
	svc, db := setupCatalogService(t, notify.NewFake())

	admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))
	_, trader := testutil.TestTrader(t, db, testutil.WithApproved(false))

	item, err := svc.ApproveTrader(admin.ID, trader.ID)
	require.NoError(t, err)
	assert.True(t, item.Approved)
	assert.NotNil(t, item.ApprovedAt)

	item, err = svc.RevokeTrader(admin.ID, trader.ID)
	require.NoError(t, err)
	assert.False(t, item.Approved)
	assert.Nil(t, item.ApprovedAt)

	_, err = svc.ApproveTrader(admin.ID, 999999)
	assert.ErrorIs(t, err, ErrTraderNotFound)
}
