package di

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"quantpulse_backend/internal/app/config"
	"quantpulse_backend/internal/feature/symbollist/adapters"
	"quantpulse_backend/internal/feature/symbollist/usecase"
	"quantpulse_backend/internal/platform/cache"
	"quantpulse_backend/internal/platform/eventbus"
)

// NewSymbolUsecase wires symbol listing and selection. With Redis, listings
// are cached and selections publish symbols_selected events.
func NewSymbolUsecase(db *gorm.DB, rdb *redis.Client, cfg config.Config) *usecase.SymbolUsecase {
	var symbols usecase.SymbolRepository = adapters.NewSymbolRepository(db)
	// bus stays an untyped nil without Redis
	var bus adapters.Publisher

	if rdb != nil {
		symbols = cache.NewCachingSymbolRepository(rdb, cfg.SymbolCacheTTL, symbols, cache.DefaultNamespace)
		bus = eventbus.NewBus(rdb, cfg.Events)
	}

	return usecase.NewSymbolUsecase(symbols, adapters.NewSelectionRepository(db), adapters.NewSelectionEvents(bus))
}
