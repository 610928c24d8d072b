package state

import (
	"context"
	"crypto/rsa"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"
)

type JwtSecret struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// AppState carries the process-wide clients. DB and Mongo stay nil when the
// memory store driver is selected.
type AppState struct {
	Ctx       context.Context
	Cancel    context.CancelFunc
	DB        *gorm.DB
	Redis     *redis.Client
	Mongo     *mongo.Client
	MongoDB   *mongo.Database
	JwtSecret *JwtSecret
}

func InitAppState(ctx context.Context, cancel context.CancelFunc) (*AppState, error) {
	conf := config.Conf
	appState := &AppState{Ctx: ctx, Cancel: cancel}

	if conf.STORE.Driver == "postgres" {
		db, _, err := InitPostgres(conf.DATABASE.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		appState.DB = db

		mongoClient, mongoDB, err := InitMongo(ctx, conf.DATABASE.Mongo.Url, conf.DATABASE.Mongo.Database)
		if err != nil {
			appState.Close()
			return nil, err
		}
		appState.Mongo = mongoClient
		appState.MongoDB = mongoDB
	} else {
		log.Warn().Msg("memory store selected, records will not survive a restart")
	}

	rdb, err := InitRedis(conf.DATABASE.Redis.Addr, conf.DATABASE.Redis.Password, conf.DATABASE.Redis.DB)
	if err != nil {
		appState.Close()
		return nil, err
	}
	appState.Redis = rdb

	jwtSecret, err := InitSecret(conf.AUTH.PrivateKey, conf.AUTH.PublicKey)
	if err != nil {
		appState.Close()
		return nil, err
	}
	appState.JwtSecret = jwtSecret

	return appState, nil
}

func (a *AppState) Close() {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			log.Info().Msg("Closing PostgreSQL database connection...")
			sqlDB.Close()
		}
	}

	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		log.Info().Msg("Closing MongoDB client...")
		defer cancel()
		if err := a.Mongo.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("failed to disconnect MongoDB client")
		}
	}

	if a.Redis != nil {
		log.Info().Msg("Closing Redis client...")
		if err := a.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis client")
		}
	}
}
