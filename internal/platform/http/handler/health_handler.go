// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// readyTimeout は依存先1件あたりの疎通確認タイムアウトです。
const readyTimeout = 2 * time.Second

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// プロセスが応答できることだけを示し、依存先は確認しません。
func Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

// Check は依存先1件の疎通確認です。
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// ReadinessHandler は /health で依存先（DB、Redis）の状態を返します。
type ReadinessHandler struct {
	checks []Check
}

// NewReadinessHandler は指定された確認項目で ReadinessHandler を作成します。
func NewReadinessHandler(checks ...Check) *ReadinessHandler {
	return &ReadinessHandler{checks: checks}
}

// Ready はすべての依存先が応答すれば200、1件でも失敗すれば503を返します。
func (h *ReadinessHandler) Ready(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	status := "healthy"
	code := http.StatusOK
	results := make(map[string]string, len(h.checks))

	for _, chk := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		err := chk.Ping(ctx)
		cancel()

		if err != nil {
			slog.Warn("readiness check failed", "dependency", chk.Name, "error", err)
			results[chk.Name] = "down"
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		results[chk.Name] = "up"
	}

	c.JSON(code, gin.H{"status": status, "checks": results})
}
