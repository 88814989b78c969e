package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram 基于 Bot API 的频道实现
type Telegram struct {
	api        *tgbotapi.BotAPI
	httpClient *http.Client
	maxElapsed time.Duration

	botOnce sync.Once
	botID   int64
	botErr  error
}

// NewTelegram 创建 Telegram 频道客户端，maxElapsed 为单次调用的重试总时长。
// 构造时不请求 getMe，机器人身份在首次需要时获取
func NewTelegram(token, baseURL string, timeout, maxElapsed time.Duration) *Telegram {
	endpoint := tgbotapi.APIEndpoint
	if baseURL != "" {
		endpoint = strings.TrimRight(baseURL, "/") + "/bot%s/%s"
	}
	httpClient := &http.Client{Timeout: timeout}

	api := &tgbotapi.BotAPI{Token: token, Client: httpClient}
	api.SetAPIEndpoint(endpoint)

	return &Telegram{
		api:        api,
		httpClient: httpClient,
		maxElapsed: maxElapsed,
	}
}

// CreateChannel Bot API 不能创建频道，需由运营在客户端创建后绑定
func (t *Telegram) CreateChannel(context.Context, string, string) (string, error) {
	return "", ErrUnsupported
}

func (t *Telegram) CreateInviteLink(ctx context.Context, channelID string, permanent bool) (string, error) {
	chat := chatConfig(channelID)

	var link string
	err := t.call(ctx, func(bot *tgbotapi.BotAPI) error {
		if permanent {
			var err error
			link, err = bot.GetInviteLink(tgbotapi.ChatInviteLinkConfig{ChatConfig: chat})
			return err
		}

		resp, err := bot.Request(tgbotapi.CreateChatInviteLinkConfig{
			ChatConfig:  chat,
			MemberLimit: 1,
			ExpireDate:  int(time.Now().Add(24 * time.Hour).Unix()),
		})
		if err != nil {
			return err
		}
		var invite tgbotapi.ChatInviteLink
		if err := json.Unmarshal(resp.Result, &invite); err != nil {
			return backoff.Permanent(fmt.Errorf("telegram createChatInviteLink: decode result: %w", err))
		}
		link = invite.InviteLink
		return nil
	})
	return link, err
}

func (t *Telegram) SendMessage(ctx context.Context, chatID, text string) error {
	msg := tgbotapi.MessageConfig{Text: text, DisableWebPagePreview: true}
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg.ChatID = id
	} else {
		msg.ChannelUsername = chatID
	}

	return t.call(ctx, func(bot *tgbotapi.BotAPI) error {
		_, err := bot.Request(msg)
		return err
	})
}

// RemoveMember 封禁后立即解封，成员被移出但以后仍可通过新邀请加入
func (t *Telegram) RemoveMember(ctx context.Context, channelID, memberID string) error {
	userID, err := strconv.ParseInt(memberID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid member id %q: %w", memberID, err)
	}
	member := memberConfig(channelID, userID)

	if err := t.call(ctx, func(bot *tgbotapi.BotAPI) error {
		_, err := bot.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: member})
		return err
	}); err != nil {
		return err
	}
	return t.call(ctx, func(bot *tgbotapi.BotAPI) error {
		_, err := bot.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true})
		return err
	})
}

func (t *Telegram) IsOperatorMember(ctx context.Context, channelID string) (bool, error) {
	botID, err := t.self(ctx)
	if err != nil {
		return false, err
	}

	chat := chatConfig(channelID)
	var member tgbotapi.ChatMember
	err = t.call(ctx, func(bot *tgbotapi.BotAPI) error {
		var err error
		member, err = bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				ChatID:             chat.ChatID,
				SuperGroupUsername: chat.SuperGroupUsername,
				UserID:             botID,
			},
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return member.IsAdministrator() || member.IsCreator(), nil
}

func (t *Telegram) ChannelInfo(ctx context.Context, channelID string) (*ChannelInfo, error) {
	chatCfg := chatConfig(channelID)

	var chat tgbotapi.Chat
	err := t.call(ctx, func(bot *tgbotapi.BotAPI) error {
		var err error
		chat, err = bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: chatCfg})
		return err
	})
	if err != nil {
		return nil, err
	}

	info := &ChannelInfo{
		ID:          strconv.FormatInt(chat.ID, 10),
		Title:       chat.Title,
		Description: chat.Description,
		Type:        chat.Type,
	}
	// 成员数只是附加信息，失败时保持为 0
	_ = t.call(ctx, func(bot *tgbotapi.BotAPI) error {
		count, err := bot.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{ChatConfig: chatCfg})
		if err == nil {
			info.MemberCount = count
		}
		return err
	})
	return info, nil
}

func (t *Telegram) self(ctx context.Context) (int64, error) {
	t.botOnce.Do(func() {
		t.botErr = t.call(ctx, func(bot *tgbotapi.BotAPI) error {
			me, err := bot.GetMe()
			t.botID = me.ID
			return err
		})
	})
	return t.botID, t.botErr
}

// call 执行一次 Bot API 调用，网络错误、429 和 5xx 按指数退避重试
func (t *Telegram) call(ctx context.Context, fn func(bot *tgbotapi.BotAPI) error) error {
	// 复制一份绑定到本次 ctx 的客户端，库本身不接收 context
	bot := *t.api
	bot.Client = ctxClient{ctx: ctx, client: t.httpClient}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = t.maxElapsed

	operation := func() error {
		err := fn(&bot)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			wrapped := &APIError{Code: apiErr.Code, Description: apiErr.Message}
			if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
				return wrapped
			}
			return backoff.Permanent(wrapped)
		}
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// APIError Bot API 返回的业务错误
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d %s", e.Code, e.Description)
}

type ctxClient struct {
	ctx    context.Context
	client *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// chatConfig 数字 ID 走 chat_id，其余按 @username 处理
func chatConfig(channelID string) tgbotapi.ChatConfig {
	if id, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		return tgbotapi.ChatConfig{ChatID: id}
	}
	return tgbotapi.ChatConfig{SuperGroupUsername: channelID}
}

func memberConfig(channelID string, userID int64) tgbotapi.ChatMemberConfig {
	chat := chatConfig(channelID)
	return tgbotapi.ChatMemberConfig{
		ChatID:             chat.ChatID,
		SuperGroupUsername: chat.SuperGroupUsername,
		UserID:             userID,
	}
}
