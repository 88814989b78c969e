package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/model/dto"
	"github.com/qs3c/trademint_server/internal/pkg/metrics"
	"github.com/qs3c/trademint_server/internal/pkg/pubsub"
	"github.com/qs3c/trademint_server/internal/pkg/queue"
	"github.com/qs3c/trademint_server/internal/repository"
)

// AlertService 交易提醒扇出：按当前有效订阅记录每个接收者，并尽力转发到频道
type AlertService struct {
	txm         *repository.Transactor
	alertRepo   *repository.AlertRepository
	subRepo     *repository.SubscriptionRepository
	serviceRepo *repository.ServiceRepository
	traderRepo  *repository.TraderRepository
	dispatcher  Dispatcher
	broadcaster AlertBroadcaster
	metrics     *metrics.Metrics
	dedupWindow time.Duration
	now         func() time.Time
}

// NewAlertService broadcaster 为 nil 时不做实时推送
func NewAlertService(
	txm *repository.Transactor,
	alertRepo *repository.AlertRepository,
	subRepo *repository.SubscriptionRepository,
	serviceRepo *repository.ServiceRepository,
	traderRepo *repository.TraderRepository,
	dispatcher Dispatcher,
	broadcaster AlertBroadcaster,
	m *metrics.Metrics,
	dedupWindow time.Duration,
) *AlertService {
	return &AlertService{
		txm:         txm,
		alertRepo:   alertRepo,
		subRepo:     subRepo,
		serviceRepo: serviceRepo,
		traderRepo:  traderRepo,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		metrics:     m,
		dedupWindow: dedupWindow,
		now:         time.Now,
	}
}

// Publish 发布提醒。去重窗口内内容相同的发布复用同一条提醒，
// 接收记录按 (alert, user) 去重，因此重试不会产生重复记录
func (s *AlertService) Publish(ctx context.Context, userID int64, req *dto.PublishAlertRequest) (*dto.PublishAlertResponse, error) {
	trader, err := s.traderRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotApprovedTrader
		}
		return nil, err
	}
	if !trader.Approved {
		return nil, ErrNotApprovedTrader
	}

	service, err := s.serviceRepo.GetByID(req.ServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	if service.TraderID != trader.ID {
		return nil, ErrServiceNotOwned
	}
	if !service.IsActive {
		return nil, ErrServiceInactive
	}

	now := s.now()
	fingerprint := alertFingerprint(service.ID, trader.ID, req)

	var (
		alert  *model.TradeAlert
		reused bool
	)
	// 提醒本身先单独提交，接收记录和频道投递都不能让它失败
	err = s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		alerts := s.alertRepo.WithTx(tx)

		if s.dedupWindow > 0 {
			existing, err := alerts.FindRecent(service.ID, fingerprint, now.Add(-s.dedupWindow))
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if existing != nil {
				alert = existing
				reused = true
				return nil
			}
		}
		alert = &model.TradeAlert{
			ServiceID:   service.ID,
			TraderID:    trader.ID,
			Message:     req.Message,
			StockSymbol: strings.ToUpper(req.StockSymbol),
			Action:      req.Action,
			TargetPrice: req.TargetPrice,
			StopLoss:    req.StopLoss,
			Fingerprint: fingerprint,
			SentAt:      now,
		}
		return alerts.Create(alert)
	})
	if err != nil {
		return nil, err
	}

	recipients, inserted, err := s.recordRecipients(alert, service.ID, now)
	if err != nil {
		log.Printf("degraded: alert recipients not recorded: alert=%d service=%d err=%v", alert.ID, service.ID, err)
	}

	s.metrics.AlertPublished(reused)
	s.metrics.RecipientsRecorded(inserted)
	log.Printf("Alert published: alert=%d service=%d trader=%d recipients=%d inserted=%d reused=%v",
		alert.ID, service.ID, trader.ID, len(recipients), inserted, reused)

	if service.HasChannel() && !reused {
		job := &queue.NotificationJob{
			Kind:      queue.KindAlert,
			ServiceID: service.ID,
			AlertID:   alert.ID,
			ChannelID: *service.ChannelID,
			Text:      FormatAlert(service.Name, alert),
		}
		if err := s.dispatcher.Dispatch(ctx, job); err != nil {
			log.Printf("degraded: alert channel send failed: alert=%d service=%d channel=%s err=%v",
				alert.ID, service.ID, job.ChannelID, err)
		}
	}

	s.broadcast(ctx, alert, recipients)

	return &dto.PublishAlertResponse{
		Alert:      toAlertItem(alert),
		Recipients: int64(len(recipients)),
		Inserted:   inserted,
		Reused:     reused,
	}, nil
}

// recordRecipients 按当前有效订阅写入接收记录，返回快照和新写入行数
func (s *AlertService) recordRecipients(alert *model.TradeAlert, serviceID int64, now time.Time) ([]*model.AlertRecipient, int64, error) {
	// end_date 已过但尚未被扫描的订阅不计入
	subs, err := s.subRepo.ListActiveForService(serviceID, now)
	if err != nil {
		return nil, 0, err
	}
	recipients := make([]*model.AlertRecipient, 0, len(subs))
	for _, sub := range subs {
		recipients = append(recipients, &model.AlertRecipient{
			AlertID:        alert.ID,
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			ReceivedAt:     now,
		})
	}
	inserted, err := s.alertRepo.InsertRecipients(recipients)
	if err != nil {
		return nil, 0, err
	}
	return recipients, inserted, nil
}

// MarkRead 标记已读，重复标记不报错
func (s *AlertService) MarkRead(ctx context.Context, recipientID, userID int64) error {
	recipient, err := s.alertRepo.GetRecipientForUser(recipientID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipientNotFound
		}
		return err
	}
	if recipient.IsRead {
		return nil
	}

	_, err = s.alertRepo.MarkRead(recipientID, userID, s.now())
	return err
}

// Inbox 当前用户收到的提醒
func (s *AlertService) Inbox(userID int64, unreadOnly bool, page, pageSize int) ([]*dto.InboxItem, int64, error) {
	recipients, total, err := s.alertRepo.ListByUser(userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.InboxItem, 0, len(recipients))
	for _, r := range recipients {
		item := &dto.InboxItem{
			RecipientID: r.ID,
			ReceivedAt:  r.ReceivedAt.Format(time.RFC3339),
			IsRead:      r.IsRead,
		}
		if r.Alert != nil {
			item.Alert = toAlertItem(r.Alert)
		}
		if r.ReadAt != nil {
			readAt := r.ReadAt.Format(time.RFC3339)
			item.ReadAt = &readAt
		}
		items = append(items, item)
	}
	return items, total, nil
}

// UnreadCount 未读提醒数
func (s *AlertService) UnreadCount(userID int64) (int64, error) {
	return s.alertRepo.CountUnread(userID)
}

func (s *AlertService) broadcast(ctx context.Context, alert *model.TradeAlert, recipients []*model.AlertRecipient) {
	if s.broadcaster == nil || len(recipients) == 0 {
		return
	}

	userIDs := make([]int64, 0, len(recipients))
	for _, r := range recipients {
		userIDs = append(userIDs, r.UserID)
	}
	event := &pubsub.AlertEvent{
		AlertID:     alert.ID,
		ServiceID:   alert.ServiceID,
		UserIDs:     userIDs,
		Message:     alert.Message,
		StockSymbol: alert.StockSymbol,
		Action:      alert.Action,
		TargetPrice: alert.TargetPrice,
		StopLoss:    alert.StopLoss,
		SentAt:      alert.SentAt.Format(time.RFC3339),
	}
	if err := s.broadcaster.PublishAlert(ctx, event); err != nil {
		log.Printf("degraded: realtime alert publish failed: alert=%d err=%v", alert.ID, err)
	}
}

// FormatAlert 频道消息文本
func FormatAlert(serviceName string, alert *model.TradeAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", serviceName)
	if alert.Action != "" || alert.StockSymbol != "" {
		fmt.Fprintf(&b, " %s %s", alert.Action, alert.StockSymbol)
	}
	b.WriteString("\n")
	b.WriteString(alert.Message)
	if alert.TargetPrice != "" {
		fmt.Fprintf(&b, "\nTarget: %s", alert.TargetPrice)
	}
	if alert.StopLoss != "" {
		fmt.Fprintf(&b, "\nStop loss: %s", alert.StopLoss)
	}
	return b.String()
}

func alertFingerprint(serviceID, traderID int64, req *dto.PublishAlertRequest) string {
	parts := []string{
		fmt.Sprint(serviceID),
		fmt.Sprint(traderID),
		strings.TrimSpace(req.Message),
		strings.ToUpper(strings.TrimSpace(req.StockSymbol)),
		req.Action,
		strings.TrimSpace(req.TargetPrice),
		strings.TrimSpace(req.StopLoss),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func toAlertItem(a *model.TradeAlert) *dto.AlertItem {
	return &dto.AlertItem{
		ID:          a.ID,
		ServiceID:   a.ServiceID,
		TraderID:    a.TraderID,
		Message:     a.Message,
		StockSymbol: a.StockSymbol,
		Action:      a.Action,
		TargetPrice: a.TargetPrice,
		StopLoss:    a.StopLoss,
		SentAt:      a.SentAt.Format(time.RFC3339),
	}
}
