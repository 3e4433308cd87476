package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Backend-PollSurvey/src/config"
	"Backend-PollSurvey/src/repository"
	"Backend-PollSurvey/src/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	client     *mongo.Client
	database   *mongo.Database
	once       sync.Once // ✅ ป้องกันการรัน ConnectMongoDB() ซ้ำ
	connectErr error
)

// ConnectMongoDB เชื่อมต่อกับ MongoDB แค่ครั้งเดียว แล้วสร้าง index ที่จำเป็น
func ConnectMongoDB(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("❌ MONGO_URI environment variable not set")
	}

	once.Do(func() {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, connectErr = mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if connectErr != nil {
			connectErr = fmt.Errorf("connect mongo: %w", connectErr)
			return
		}

		// ตรวจสอบการเชื่อมต่อ
		if connectErr = client.Ping(connectCtx, readpref.Primary()); connectErr != nil {
			connectErr = fmt.Errorf("ping mongo: %w", connectErr)
			return
		}

		database = client.Database(cfg.MongoDB)
		if connectErr = repository.EnsureIndexes(connectCtx, database); connectErr != nil {
			return
		}

		utils.Log.WithField("db", cfg.MongoDB).Info("✅ MongoDB connected successfully")
	})

	return database, connectErr
}

// NewStore เลือก repository ตาม DB_DRIVER
func NewStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	if cfg.DBDriver == config.DriverMemory {
		utils.Log.Warn("⚠️ DB_DRIVER=memory, data is lost on restart")
		return repository.NewMemoryStore(), nil
	}
	db, err := ConnectMongoDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return repository.NewMongoStore(client, db, cfg.MongoTransactions), nil
}

// Disconnect ปิด connection ตอน shutdown
func Disconnect(ctx context.Context) {
	if client == nil {
		return
	}
	if err := client.Disconnect(ctx); err != nil {
		utils.Log.WithError(err).Error("❌ MongoDB disconnect failed")
	}
}
