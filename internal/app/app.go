package app

import (
	"context"

	"github.com/reelroom/core/internal/config"
	http_init "github.com/reelroom/core/internal/delivery/http/init"
	http_identity_middleware "github.com/reelroom/core/internal/delivery/http/middleware/identity"
	http_queue "github.com/reelroom/core/internal/delivery/http/queue"
	http_room "github.com/reelroom/core/internal/delivery/http/room"
	http_voting "github.com/reelroom/core/internal/delivery/http/voting"
	ws_room "github.com/reelroom/core/internal/delivery/ws/room"
	infra_catalog "github.com/reelroom/core/internal/infra/catalog"
	infra_pg_init "github.com/reelroom/core/internal/infra/postgres/init"
	infra_postgres_queue "github.com/reelroom/core/internal/infra/postgres/queue"
	infra_postgres_room "github.com/reelroom/core/internal/infra/postgres/room"
	infra_postgres_vote "github.com/reelroom/core/internal/infra/postgres/vote"
	infra_catalog_cache "github.com/reelroom/core/internal/infra/redis/catalogcache"
	infra_redis_init "github.com/reelroom/core/internal/infra/redis/init"
	"github.com/reelroom/core/internal/service/sweeper"
	usecase_queue "github.com/reelroom/core/internal/usecase/queue"
	usecase_room "github.com/reelroom/core/internal/usecase/room"
	usecase_vote "github.com/reelroom/core/internal/usecase/vote"
)

func Go(cfg *config.Config) {
	pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)
	infra_pg_init.MustMigrate(pgConn)
	redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)

	roomRepository := infra_postgres_room.New(pgConn)
	queueRepository := infra_postgres_queue.New(pgConn)
	voteRepository := infra_postgres_vote.New(pgConn)

	pageCache := infra_catalog_cache.New(redisConn, "catalog_pages", cfg.Catalog.CacheTTL)
	catalog := infra_catalog.New(cfg.Catalog, infra_catalog.WithCache(pageCache))

	roomUC := usecase_room.New(roomRepository)
	voteUC := usecase_vote.New(voteRepository, roomRepository, queueRepository)
	queueUC := usecase_queue.New(queueRepository, catalog, voteRepository, roomRepository, usecase_queue.Config{
		PoolSize:     cfg.Engine.PoolSize,
		LowWaterMark: cfg.Engine.LowWaterMark,
		QueueTTL:     cfg.Engine.QueueTTL,
	})

	sweep := sweeper.New(queueRepository, roomRepository,
		cfg.Engine.SweepPeriod, cfg.Engine.QueueTTL, nil)
	go sweep.Run(context.Background())

	hub := ws_room.NewHub(nil)

	controllerPool := http_init.NewControllerPool(http_identity_middleware.Middleware())
	controllerPool.Add(http_room.New(roomUC, hub))
	controllerPool.Add(http_queue.New(queueUC))
	controllerPool.Add(http_voting.New(voteUC, hub))
	controllerPool.Add(ws_room.NewController(hub))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}
