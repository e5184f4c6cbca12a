package di

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"quantpulse_backend/internal/app/config"
	"quantpulse_backend/internal/feature/symbolimport/adapters"
	"quantpulse_backend/internal/feature/symbolimport/usecase"
	"quantpulse_backend/internal/platform/cache"
	"quantpulse_backend/internal/platform/eventbus"
)

// NewImportUsecase wires the directory import pipeline.
// Without Redis, imports still commit; the symbol cache does not exist and
// event publishing reports the bus as unavailable.
func NewImportUsecase(db *gorm.DB, rdb *redis.Client, cfg config.Config) *usecase.ImportUsecase {
	var writer usecase.SymbolWriter = adapters.NewSymbolUpsertRepository(db)
	var events usecase.ImportEvents

	if rdb != nil {
		writer = cache.NewInvalidatingSymbolWriter(rdb, writer, cache.DefaultNamespace)
		events = adapters.NewImportEventPublisher(eventbus.NewBus(rdb, cfg.Events))
	} else {
		events = adapters.NewUnavailableImportEvents()
	}

	return usecase.NewImportUsecase(NewDirectoryProviders(cfg.Directory), writer, events)
}
