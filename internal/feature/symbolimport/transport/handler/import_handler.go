// Package handler はsymbolimportフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quantpulse_backend/internal/feature/symbolimport/domain/entity"
	"quantpulse_backend/internal/feature/symbolimport/transport/http/dto"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
	httpdto "quantpulse_backend/internal/platform/http/dto"
)

// ImportUsecase はシンボルディレクトリ取り込みのユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ImportUsecase interface {
	ImportDirectory(ctx context.Context, source entity.Source, trigger entity.Trigger) (entity.ImportSummary, error)
	RecentImports(ctx context.Context, limit int) ([]entity.PublishedImport, error)
	ImportSymbols(ctx context.Context, symbols []entity.ManualSymbol) (entity.ManualImportResult, error)
}

// ImportHandler は取り込み操作のHTTPリクエストを処理します。
type ImportHandler struct {
	uc ImportUsecase
}

// NewImportHandler は新しい ImportHandler を作成します。
func NewImportHandler(uc ImportUsecase) *ImportHandler {
	return &ImportHandler{uc: uc}
}

// Import は指定ソース（nasdaq / sec）のディレクトリを取り込み、サマリーを返します。
//
// エンドポイント例:
// POST /symbols/import/nasdaq
//
// 取得に失敗した場合（リトライ上限到達）は503を返します。
func (h *ImportHandler) Import(c *gin.Context) {
	source, err := entity.ParseSource(c.Param("source"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		return
	}

	summary, err := h.uc.ImportDirectory(c.Request.Context(), source, entity.TriggerAPI)
	if err != nil {
		status, msg := importErrorStatus(err)
		slog.Error("symbol import failed", "exchange", source, "status", status, "error", err)
		c.JSON(status, httpdto.ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, dto.NewImportSummaryResponse(summary))
}

// ImportSymbols は管理者が指定したシンボルのうち未登録のものだけを追加します。
// 既存のシンボルは変更しません。
//
// エンドポイント例:
// POST /symbols/import [{"symbol": "GC=F", "instrument_type": "METAL", "exchange": "COMEX"}]
func (h *ImportHandler) ImportSymbols(c *gin.Context) {
	var req []dto.ManualSymbolReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request"})
		return
	}

	symbols := make([]entity.ManualSymbol, 0, len(req))
	for _, r := range req {
		symbols = append(symbols, r.ToEntity())
	}

	res, err := h.uc.ImportSymbols(c.Request.Context(), symbols)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidSymbol) {
			c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("manual symbol import failed", "count", len(symbols), "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "symbol import failed"})
		return
	}

	c.JSON(http.StatusOK, dto.ManualImportResponse{
		Received: res.Received,
		Created:  res.Created,
		Skipped:  res.Skipped,
	})
}

// Events は直近の取り込みイベントを新しい順に返します。
//
// エンドポイント例:
// GET /symbols/import/events?limit=20
func (h *ImportHandler) Events(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > usecase.MaxRecentImports {
			c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	events, err := h.uc.RecentImports(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, usecase.ErrEventsUnavailable) {
			c.JSON(http.StatusServiceUnavailable, httpdto.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("failed to read import events", "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to read import events"})
		return
	}

	out := make([]dto.ImportEventItem, 0, len(events))
	for _, ev := range events {
		out = append(out, dto.ImportEventItem{
			EventID:   ev.ID,
			Exchange:  string(ev.Exchange),
			Inserted:  ev.Inserted,
			Updated:   ev.Updated,
			Source:    string(ev.Trigger),
			Timestamp: ev.Timestamp,
		})
	}
	c.JSON(http.StatusOK, dto.ImportEventsResponse{Events: out})
}

func importErrorStatus(err error) (int, string) {
	var perr *usecase.ProviderError
	switch {
	case errors.As(err, &perr):
		return http.StatusServiceUnavailable, perr.Error()
	case errors.Is(err, usecase.ErrUnknownSource):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "symbol import failed"
	}
}
