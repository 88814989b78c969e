package service

import (
	"errors"
)

// 错误类别，调用方通过 errors.Is 判断
var (
	ErrNotFound                  = errors.New("not found")
	ErrConflict                  = errors.New("conflict")
	ErrForbidden                 = errors.New("forbidden")
	ErrInvalidSignature          = errors.New("invalid payment signature")
	ErrAlreadyProcessed          = errors.New("payment already processed")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrExternalServiceDegraded   = errors.New("external service degraded")
)

// Error 带类别的业务错误，Error() 返回面向用户的提示
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}

var (
	ErrUserNotFound         = newError(ErrNotFound, "用户不存在")
	ErrServiceNotFound      = newError(ErrNotFound, "服务不存在")
	ErrPaymentNotFound      = newError(ErrNotFound, "支付记录不存在")
	ErrSubscriptionNotFound = newError(ErrNotFound, "订阅不存在")
	ErrTraderNotFound       = newError(ErrNotFound, "交易员不存在")
	ErrRecipientNotFound    = newError(ErrNotFound, "提醒不存在")
	ErrChannelNotBound      = newError(ErrNotFound, "服务未绑定频道")

	ErrNotPurchaser          = newError(ErrConflict, "当前账号不能购买服务")
	ErrServiceInactive       = newError(ErrConflict, "服务已停止售卖")
	ErrTraderNotApproved     = newError(ErrConflict, "交易员尚未通过审核")
	ErrAlreadySubscribed     = newError(ErrConflict, "已订阅该服务")
	ErrInvalidTerms          = newError(ErrConflict, "价格或时长不可用")
	ErrPaymentClosed         = newError(ErrConflict, "支付已失败，请重新下单")
	ErrServiceMismatch       = newError(ErrConflict, "支付与服务不匹配")
	ErrSubscriptionNotActive = newError(ErrConflict, "订阅不是有效状态")
	ErrChannelUnsupported    = newError(ErrConflict, "当前频道服务不支持该操作")
	ErrNotChannelOperator    = newError(ErrConflict, "机器人不是频道管理员")

	ErrNotApprovedTrader = newError(ErrForbidden, "仅限已审核的交易员")
	ErrServiceNotOwned   = newError(ErrForbidden, "无权操作此服务")

	ErrChannelUnavailable = newError(ErrExternalServiceDegraded, "频道服务暂不可用，请稍后重试")

	ErrGatewayUnavailable = errors.New("支付网关暂不可用，请稍后重试")
)
