// Package handler はsymbollistフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"quantpulse_backend/internal/feature/symbollist/domain/entity"
	"quantpulse_backend/internal/feature/symbollist/transport/http/dto"
	"quantpulse_backend/internal/feature/symbollist/usecase"
	httpdto "quantpulse_backend/internal/platform/http/dto"
	jwtmw "quantpulse_backend/internal/platform/jwt"
)

// SymbolUsecase は銘柄情報に関するユースケースのインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type SymbolUsecase interface {
	ListSymbols(ctx context.Context, search string, limit, offset int) (entity.SymbolPage, error)
	SetSelected(ctx context.Context, userID uint, symbol string, selected bool) error
	Selected(ctx context.Context, userID uint) ([]string, error)
}

// SymbolHandler は銘柄情報に関するHTTPリクエストを処理します。
type SymbolHandler struct {
	uc SymbolUsecase
}

// NewSymbolHandler は新しい SymbolHandler を作成します。
func NewSymbolHandler(uc SymbolUsecase) *SymbolHandler {
	return &SymbolHandler{uc: uc}
}

// List は有効な銘柄の一覧を取得するAPIです。
//
// エンドポイント例:
// GET /symbols?search=aa&limit=50&offset=0
func (h *SymbolHandler) List(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid limit"})
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid offset"})
		return
	}

	page, err := h.uc.ListSymbols(c.Request.Context(), c.Query("search"), limit, offset)
	if err != nil {
		slog.Error("failed to list symbols", "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to list symbols"})
		return
	}

	out := make([]dto.SymbolItem, 0, len(page.Symbols))
	for _, s := range page.Symbols {
		out = append(out, dto.SymbolItem{
			Symbol:         s.Symbol,
			CompanyName:    s.CompanyName,
			YahooSymbol:    s.YahooSymbol,
			InstrumentType: string(s.InstrumentType),
			Exchange:       s.Exchange,
			Currency:       s.Currency,
			IsActive:       s.IsActive,
		})
	}
	c.JSON(http.StatusOK, dto.SymbolListResponse{Symbols: out, Total: page.Total})
}

// Select は銘柄の選択・選択解除を行います。未登録の銘柄は404を返します。
func (h *SymbolHandler) Select(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req dto.SelectSymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request"})
		return
	}

	err := h.uc.SetSelected(c.Request.Context(), userID, req.Symbol, *req.Selected)
	switch {
	case errors.Is(err, usecase.ErrSymbolNotFound):
		c.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "symbol not found"})
		return
	case err != nil:
		slog.Error("failed to update selection", "user_id", userID, "symbol", req.Symbol, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to update selection"})
		return
	}

	c.JSON(http.StatusOK, dto.SelectSymbolResponse{
		Symbol:   strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Selected: *req.Selected,
	})
}

// Selected はログインユーザーが選択中の銘柄を返します。
func (h *SymbolHandler) Selected(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		return
	}

	symbols, err := h.uc.Selected(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to list selected symbols", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to list selected symbols"})
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	c.JSON(http.StatusOK, dto.SelectedSymbolsResponse{Symbols: symbols})
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
