package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/model/dto"
	"github.com/qs3c/trademint_server/internal/pkg/notify"
	"github.com/qs3c/trademint_server/internal/repository"
	"github.com/qs3c/trademint_server/internal/testutil"
)

func TestSubscriptionService_ListAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewSubscriptionService(repository.NewSubscriptionRepository(db), repository.NewServiceRepository(db), notify.NewFake(), time.Second)

	_, trader := testutil.TestTrader(t, db)
	s1 := testutil.TestService(t, db, trader.ID)
	s2 := testutil.TestService(t, db, trader.ID)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)

	active := testutil.TestSubscription(t, db, user.ID, s1.ID)
	testutil.TestSubscription(t, db, user.ID, s2.ID, testutil.WithSubscriptionStatus(model.SubscriptionExpired),
		testutil.WithEndDate(time.Now().Add(-time.Hour)))
	testutil.TestSubscription(t, db, other.ID, s1.ID)

	items, total, err := svc.List(user.ID, &dto.ListSubscriptionsRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	items, total, err = svc.List(user.ID, &dto.ListSubscriptionsRequest{Status: model.SubscriptionActive, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, s1.Name, items[0].ServiceName)
	assert.InDelta(t, 29, items[0].DaysLeft, 1)

	item, err := svc.Get(user.ID, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, item.ID)

	_, err = svc.Get(other.ID, active.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestSubscriptionService_Cancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	sink := notify.NewFake()
	svc := NewSubscriptionService(repository.NewSubscriptionRepository(db), repository.NewServiceRepository(db), sink, time.Second)

	_, trader := testutil.TestTrader(t, db)
	service := testutil.TestService(t, db, trader.ID, testutil.WithChannel("-100888"))
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, service.ID, testutil.WithMemberID("5150"))

	item, err := svc.Cancel(context.Background(), user.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, item.Status)
	assert.Equal(t, 0, item.DaysLeft)

	got := reloadSubscription(t, db, sub.ID)
	assert.Equal(t, model.SubscriptionCancelled, got.Status)
	assert.Nil(t, got.ActiveKey)
	assert.NotNil(t, got.ChannelRevokedAt)

	removals := sink.Calls("RemoveMember")
	require.Len(t, removals, 1)
	assert.Equal(t, "5150", removals[0].Arg)

	_, err = svc.Cancel(context.Background(), user.ID, sub.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotActive)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSubscriptionService_Cancel_SinkFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	sink := notify.NewFake()
	sink.Fail("RemoveMember", errors.New("chat not found"))
	svc := NewSubscriptionService(repository.NewSubscriptionRepository(db), repository.NewServiceRepository(db), sink, time.Second)

	_, trader := testutil.TestTrader(t, db)
	service := testutil.TestService(t, db, trader.ID, testutil.WithChannel("-100888"))
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, service.ID, testutil.WithMemberID("5150"))

	_, err := svc.Cancel(context.Background(), user.ID, sub.ID)
	require.NoError(t, err)

	got := reloadSubscription(t, db, sub.ID)
	assert.Equal(t, model.SubscriptionCancelled, got.Status)
	assert.Nil(t, got.ChannelRevokedAt)
}

func TestSubscriptionService_Cancel_NotOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewSubscriptionService(repository.NewSubscriptionRepository(db), repository.NewServiceRepository(db), notify.NewFake(), time.Second)

	_, trader := testutil.TestTrader(t, db)
	service := testutil.TestService(t, db, trader.ID)
	owner := testutil.TestUser(t, db)
	stranger := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, owner.ID, service.ID)

	_, err := svc.Cancel(context.Background(), stranger.ID, sub.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	assert.Equal(t, model.SubscriptionActive, reloadSubscription(t, db, sub.ID).Status)
}
