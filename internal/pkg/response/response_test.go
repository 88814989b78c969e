package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// render 执行 fn 并返回 HTTP 状态、解码后的响应和原始字段
func render(t *testing.T, fn func(c *gin.Context)) (int, Response, map[string]json.RawMessage) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	return w.Code, resp, raw
}

func TestSuccessEnvelope(t *testing.T) {
	status, resp, raw := render(t, func(c *gin.Context) {
		Success(c, gin.H{"order_id": "order_1"})
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.Equal(t, "order_1", resp.Data.(map[string]interface{})["order_id"])
	assert.Len(t, raw, 3)

	_, resp, _ = render(t, func(c *gin.Context) {
		SuccessWithMessage(c, "订阅已开通", nil)
	})
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "订阅已开通", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestSuccessPage(t *testing.T) {
	_, resp, _ := render(t, func(c *gin.Context) {
		SuccessPage(c, 12, 2, 5, []int64{6, 7, 8, 9, 10})
	})

	page, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(12), page["total"])
	assert.Equal(t, float64(2), page["page"])
	assert.Equal(t, float64(5), page["page_size"])
	assert.Len(t, page["items"], 5)
}

func TestSuccessPage_NilItemsEncodeAsEmptyList(t *testing.T) {
	_, _, raw := render(t, func(c *gin.Context) {
		SuccessPage(c, 0, 1, 20, nil)
	})

	var page map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["data"], &page))
	assert.JSONEq(t, `[]`, string(page["items"]))
}

// 所有错误都以 HTTP 200 返回，data 为 null
func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name    string
		write   func(c *gin.Context, message string)
		code    int
		message string
	}{
		{"param", ParamError, CodeParamError, "参数错误"},
		{"auth", AuthError, CodeAuthFailed, "认证失败"},
		{"permission", PermissionError, CodePermissionDenied, "权限不足"},
		{"not found", NotFoundError, CodeResourceNotFound, "资源不存在"},
		{"conflict", ConflictError, CodeConflict, "当前状态不允许该操作"},
		{"duplicate", DuplicateError, CodeDuplicateAction, "重复操作"},
		{"signature", SignatureError, CodeInvalidSignature, "支付签名无效"},
		{"verify failed", VerifyFailedError, CodeVerifyFailed, "支付校验失败"},
		{"gateway", GatewayError, CodeGatewayError, "支付网关暂不可用"},
		{"degraded", DegradedError, CodeExternalDegraded, "外部服务暂不可用"},
		{"server", ServerError, CodeServerError, "服务器内部错误"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, raw := render(t, func(c *gin.Context) {
				tt.write(c, "")
			})
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, "null", string(raw["data"]))

			_, resp, _ = render(t, func(c *gin.Context) {
				tt.write(c, "custom")
			})
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, "custom", resp.Message)
		})
	}
}

func TestPaymentCodesAreDistinct(t *testing.T) {
	codes := []int{
		CodeConflict, CodeDuplicateAction, CodeInvalidSignature,
		CodeVerifyFailed, CodeGatewayError, CodeExternalDegraded,
	}
	seen := make(map[int]bool)
	for _, code := range codes {
		assert.False(t, seen[code], "code %d reused", code)
		seen[code] = true
	}
	assert.Equal(t, 1006, CodeInvalidSignature)
	assert.Equal(t, 1007, CodeVerifyFailed)
	assert.Equal(t, 5001, CodeGatewayError)
	assert.Equal(t, 5002, CodeExternalDegraded)
}

func TestMessage_UnknownCodeFallsBack(t *testing.T) {
	assert.Equal(t, "服务器内部错误", Message(4242))

	_, resp, _ := render(t, func(c *gin.Context) {
		Error(c, 4242, "")
	})
	assert.Equal(t, 4242, resp.Code)
	assert.Equal(t, "服务器内部错误", resp.Message)
}
