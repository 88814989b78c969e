package notify

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("notify: sink not configured")
	ErrUnsupported   = errors.New("notify: operation not supported")
)

// ChannelInfo 频道信息
type ChannelInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	MemberCount int    `json:"member_count"`
}

// Sink 外部消息频道。所有调用都是尽力而为的网络请求，调用方负责超时和错误隔离
type Sink interface {
	CreateChannel(ctx context.Context, title, description string) (string, error)
	// CreateInviteLink permanent 为 false 时生成单次有效的邀请链接
	CreateInviteLink(ctx context.Context, channelID string, permanent bool) (string, error)
	// SendMessage chatID 可以是频道，也可以是成员的私聊 ID
	SendMessage(ctx context.Context, chatID, text string) error
	RemoveMember(ctx context.Context, channelID, memberID string) error
	// IsOperatorMember 机器人是否为频道管理员
	IsOperatorMember(ctx context.Context, channelID string) (bool, error)
	ChannelInfo(ctx context.Context, channelID string) (*ChannelInfo, error)
}

// Nop 未配置频道时使用，所有调用返回 ErrNotConfigured
type Nop struct{}

func (Nop) CreateChannel(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (Nop) CreateInviteLink(context.Context, string, bool) (string, error) {
	return "", ErrNotConfigured
}

func (Nop) SendMessage(context.Context, string, string) error {
	return ErrNotConfigured
}

func (Nop) RemoveMember(context.Context, string, string) error {
	return ErrNotConfigured
}

func (Nop) IsOperatorMember(context.Context, string) (bool, error) {
	return false, ErrNotConfigured
}

func (Nop) ChannelInfo(context.Context, string) (*ChannelInfo, error) {
	return nil, ErrNotConfigured
}
