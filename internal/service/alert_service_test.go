package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/model/dto"
	"github.com/qs3c/trademint_server/internal/pkg/queue"
	"github.com/qs3c/trademint_server/internal/repository"
	"github.com/qs3c/trademint_server/internal/testutil"
)

type alertFixture struct {
	db          *gorm.DB
	svc         *AlertService
	dispatcher  *recordingDispatcher
	broadcaster *recordingBroadcaster
}

func setupAlertService(t *testing.T, dedupWindow time.Duration) *alertFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	dispatcher := &recordingDispatcher{}
	broadcaster := &recordingBroadcaster{}
	svc := NewAlertService(
		repository.NewTransactor(db),
		repository.NewAlertRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewServiceRepository(db),
		repository.NewTraderRepository(db),
		dispatcher,
		broadcaster,
		nil,
		dedupWindow,
	)
	return &alertFixture{db: db, svc: svc, dispatcher: dispatcher, broadcaster: broadcaster}
}

func countRecipients(t *testing.T, db *gorm.DB, alertID int64) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.AlertRecipient{}).Where("alert_id = ?", alertID).Count(&count).Error)
	return count
}

func TestAlertService_Publish(t *testing.T) {
	f := setupAlertService(t, 10*time.Minute)

	traderUser, trader := testutil.TestTrader(t, f.db)
	service := testutil.TestService(t, f.db, trader.ID, testutil.WithChannel("-100321"))

	var subscribers []int64
	for i := 0; i < 3; i++ {
		user := testutil.TestUser(t, f.db)
		testutil.TestSubscription(t, f.db, user.ID, service.ID)
		subscribers = append(subscribers, user.ID)
	}
	lapsed := testutil.TestUser(t, f.db)
	testutil.TestSubscription(t, f.db, lapsed.ID, service.ID, testutil.WithSubscriptionStatus(model.SubscriptionExpired))

	resp, err := f.svc.Publish(context.Background(), traderUser.ID, &dto.PublishAlertRequest{
		ServiceID:   service.ID,
		Message:     "Breakout above resistance",
		StockSymbol: "reliance",
		Action:      "BUY",
		TargetPrice: "2950",
		StopLoss:    "2810",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Recipients)
	assert.Equal(t, int64(3), resp.Inserted)
	assert.False(t, resp.Reused)
	assert.Equal(t, "RELIANCE", resp.Alert.StockSymbol)
	assert.Equal(t, int64(3), countRecipients(t, f.db, resp.Alert.ID))

	jobs := f.dispatcher.Jobs(queue.KindAlert)
	require.Len(t, jobs, 1)
	assert.Equal(t, "-100321", jobs[0].ChannelID)
	assert.Contains(t, jobs[0].Text, "BUY RELIANCE")
	assert.Contains(t, jobs[0].Text, "Stop loss: 2810")

	require.Len(t, f.broadcaster.events, 1)
	assert.ElementsMatch(t, subscribers, f.broadcaster.events[0].UserIDs)
}

func TestAlertService_Publish_Twice(t *testing.T) {
	f := setupAlertService(t, 10*time.Minute)

	traderUser, trader := testutil.TestTrader(t, f.db)
	service := testutil.TestService(t, f.db, trader.ID, testutil.WithChannel("-100321"))
	for i := 0; i < 4; i++ {
		testutil.TestSubscription(t, f.db, testutil.TestUser(t, f.db).ID, service.ID)
	}

	req := &dto.PublishAlertRequest{ServiceID: service.ID, Message: "Exit half", StockSymbol: "TCS", Action: "SELL"}

	first, err := f.svc.Publish(context.Background(), traderUser.ID, req)
	require.NoError(t, err)
	second, err := f.svc.Publish(context.Background(), traderUser.ID, req)
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.Alert.ID, second.Alert.ID)
	assert.Equal(t, int64(0), second.Inserted)
	assert.Equal(t, int64(4), countRecipients(t, f.db, first.Alert.ID))

	var alerts int64
	f.db.Model(&model.TradeAlert{}).Count(&alerts)
	assert.Equal(t, int64(1), alerts)

	// 重复发布不再转发到频道
	assert.Len(t, f.dispatcher.Jobs(queue.KindAlert), 1)
}

func TestAlertService_Publish_WithoutDedup(t *testing.T) {
	f := setupAlertService(t, 0)

	traderUser, trader := testutil.TestTrader(t, f.db)
	service := testutil.TestService(t, f.db, trader.ID)
	testutil.TestSubscription(t, f.db, testutil.TestUser(t, f.db).ID, service.ID)

	req := &dto.PublishAlertRequest{ServiceID: service.ID, Message: "Same text"}
	first, err := f.svc.Publish(context.Background(), traderUser.ID, req)
	require.NoError(t, err)
	second, err := f.svc.Publish(context.Background(), traderUser.ID, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Alert.ID, second.Alert.ID)
	assert.Equal(t, int64(1), countRecipients(t, f.db, first.Alert.ID))
	assert.Equal(t, int64(1), countRecipients(t, f.db, second.Alert.ID))
	// 没有绑定频道时不投递
	assert.Empty(t, f.dispatcher.Jobs(queue.KindAlert))
}

func TestAlertService_Publish_SkipsLapsedActive(t *testing.T) {
	f := setupAlertService(t, time.Minute)

	traderUser, trader := testutil.TestTrader(t, f.db)
	service := testutil.TestService(t, f.db, trader.ID)
	current := testutil.TestUser(t, f.db)
	testutil.TestSubscription(t, f.db, current.ID, service.ID)
	// end_date 已过，扫描尚未执行
	stale := testutil.TestUser(t, f.db)
	testutil.TestSubscription(t, f.db, stale.ID, service.ID, testutil.WithEndDate(time.Now().Add(-time.Minute)))

	resp, err := f.svc.Publish(context.Background(), traderUser.ID, &dto.PublishAlertRequest{ServiceID: service.ID, Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Recipients)

	var recipient model.AlertRecipient
	require.NoError(t, f.db.Where("alert_id = ?", resp.Alert.ID).First(&recipient).Error)
	assert.Equal(t, current.ID, recipient.UserID)
}

func TestAlertService_Publish_NoSubscribers(t *testing.T) {
	f := setupAlertService(t, time.Minute)

	traderUser, trader := testutil.TestTrader(t, f.db)
	service := testutil.TestService(t, f.db, trader.ID)

	resp, err := f.svc.Publish(context.Background(), traderUser.ID, &dto.PublishAlertRequest{ServiceID: service.ID, Message: "quiet"})
	require.NoError(t, err)
	assert.NotZero(t, resp.Alert.ID)
	assert.Equal(t, int64(0), resp.Recipients)
	assert.Empty(t, f.broadcaster.events)
}

func TestAlertService_Publish_RecipientWriteFails(t *testing.T) {
	f := setupAlertService(t, time.Minute)

	traderUser, trader := testutil.TestTrader(t, f.db)
	service := testutil.TestService(t, f.db, trader.ID, testutil.WithChannel("-100654"))
	testutil.TestSubscription(t, f.db, testutil.TestUser(t, f.db).ID, service.ID)

	require.NoError(t, f.db.Migrator().DropTable(&model.AlertRecipient{}))

	resp, err := f.svc.Publish(context.Background(), traderUser.ID, &dto.PublishAlertRequest{ServiceID: service.ID, Message: "Gap up"})
	require.NoError(t, err)
	assert.NotZero(t, resp.Alert.ID)
	assert.Equal(t, int64(0), resp.Inserted)

	var alerts int64
	require.NoError(t, f.db.Model(&model.TradeAlert{}).Count(&alerts).Error)
	assert.Equal(t, int64(1), alerts)

	// 接收记录失败不影响频道投递
	jobs := f.dispatcher.Jobs(queue.KindAlert)
	require.Len(t, jobs, 1)
	assert.Equal(t, resp.Alert.ID, jobs[0].AlertID)
	assert.Empty(t, f.broadcaster.events)
}

func TestAlertService_Publish_Rejections(t *testing.T) {
	f := setupAlertService(t, time.Minute)

	ownerUser, owner := testutil.TestTrader(t, f.db)
	otherUser, _ := testutil.TestTrader(t, f.db)
	pendingUser, _ := testutil.TestTrader(t, f.db, testutil.WithApproved(false))
	client := testutil.TestUser(t, f.db)
	service := testutil.TestService(t, f.db, owner.ID)
	inactive := testutil.TestService(t, f.db, owner.ID, testutil.WithInactive())

	tests := []struct {
		name      string
		userID    int64
		serviceID int64
		wantErr   error
		wantKind  error
	}{
		{"client cannot publish", client.ID, service.ID, ErrNotApprovedTrader, ErrForbidden},
		{"unapproved trader", pendingUser.ID, service.ID, ErrNotApprovedTrader, ErrForbidden},
		{"not owner", otherUser.ID, service.ID, ErrServiceNotOwned, ErrForbidden},
		{"unknown service", ownerUser.ID, 999999, ErrServiceNotFound, ErrNotFound},
		{"inactive service", ownerUser.ID, inactive.ID, ErrServiceInactive, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Publish(context.Background(), tt.userID, &dto.PublishAlertRequest{ServiceID: tt.serviceID, Message: "m"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}

	var alerts int64
	f.db.Model(&model.TradeAlert{}).Count(&alerts)
	assert.Equal(t, int64(0), alerts)
}

func TestAlertService_InboxAndMarkRead(t *testing.T) {
	f := setupAlertService(t, time.Minute)

	traderUser, trader := testutil.TestTrader(t, f.db)
	service := testutil.TestService(t, f.db, trader.ID)
	user := testutil.TestUser(t, f.db)
	other := testutil.TestUser(t, f.db)
	testutil.TestSubscription(t, f.db, user.ID, service.ID)

	for _, msg := range []string{"one", "two"} {
		_, err := f.svc.Publish(context.Background(), traderUser.ID, &dto.PublishAlertRequest{ServiceID: service.ID, Message: msg})
		require.NoError(t, err)
	}

	items, total, err := f.svc.Inbox(user.ID, false, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Alert)

	unread, err := f.svc.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	target := items[0].RecipientID
	require.NoError(t, f.svc.MarkRead(context.Background(), target, user.ID))
	// 重复标记不报错
	require.NoError(t, f.svc.MarkRead(context.Background(), target, user.ID))

	unread, err = f.svc.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	unreadItems, unreadTotal, err := f.svc.Inbox(user.ID, true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unreadTotal)
	require.Len(t, unreadItems, 1)
	assert.NotEqual(t, target, unreadItems[0].RecipientID)

	err = f.svc.MarkRead(context.Background(), target, other.ID)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestFormatAlert(t *testing.T) {
	alert := &model.TradeAlert{Message: "Book profits", StockSymbol: "INFY", Action: "SELL", TargetPrice: "1500"}
	text := FormatAlert("Swing Picks", alert)
	assert.Equal(t, "[Swing Picks] SELL INFY\nBook profits\nTarget: 1500", text)

	plain := FormatAlert("Swing Picks", &model.TradeAlert{Message: "Market closed"})
	assert.Equal(t, "[Swing Picks]\nMarket closed", plain)
}
