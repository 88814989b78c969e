package notify

import (
	"context"
	"fmt"
	"sync"
)

// Call 一次调用记录
type Call struct {
	Method string
	Target string
	Arg    string
}

// Fake 记录全部调用，可按方法注入错误
type Fake struct {
	mu    sync.Mutex
	calls []Call
	seq   int

	Errors   map[string]error
	Operator bool
}

func NewFake() *Fake {
	return &Fake{Errors: make(map[string]error), Operator: true}
}

// Fail 让指定方法返回错误
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[method] = err
}

// Calls 返回指定方法的调用记录，method 为空时返回全部
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) record(method, target, arg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Method: method, Target: target, Arg: arg})
	return f.Errors[method]
}

func (f *Fake) CreateChannel(_ context.Context, title, description string) (string, error) {
	if err := f.record("CreateChannel", title, description); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("-100%d", f.seq), nil
}

func (f *Fake) CreateInviteLink(_ context.Context, channelID string, permanent bool) (string, error) {
	if err := f.record("CreateInviteLink", channelID, fmt.Sprint(permanent)); err != nil {
		return "", err
	}
	return "https://t.me/+invite_" + channelID, nil
}

func (f *Fake) SendMessage(_ context.Context, chatID, text string) error {
	return f.record("SendMessage", chatID, text)
}

func (f *Fake) RemoveMember(_ context.Context, channelID, memberID string) error {
	return f.record("RemoveMember", channelID, memberID)
}

func (f *Fake) IsOperatorMember(_ context.Context, channelID string) (bool, error) {
	if err := f.record("IsOperatorMember", channelID, ""); err != nil {
		return false, err
	}
	return f.Operator, nil
}

func (f *Fake) ChannelInfo(_ context.Context, channelID string) (*ChannelInfo, error) {
	if err := f.record("ChannelInfo", channelID, ""); err != nil {
		return nil, err
	}
	return &ChannelInfo{ID: channelID, Title: "channel " + channelID, Type: "channel"}, nil
}
