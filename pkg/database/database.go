package database

import (
	"fmt"
	"log"

	"ai_tutor_backend/internal/config"
	"ai_tutor_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.DBName,
		dbCfg.Charset,
		dbCfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// release 模式下表结构由运维管理，只有显式加 -migrate 才自动迁移
	if !ShouldMigrate(cfg.Server.Mode, cfg.ForceMigrate) {
		log.Println("Skipping auto-migration in release mode (use -migrate to force)")
		return db, nil
	}

	err = db.AutoMigrate(
		&model.KnowledgeMastery{},
		&model.MistakeRecord{},
		&model.MistakeKnowledgePoint{},
		&model.KnowledgePointLearningTrack{},
		&model.ReviewSession{},
		&model.UserKnowledgeGraphSnapshot{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}

// ShouldMigrate 非 release 模式默认自动迁移，release 模式需要显式强制
func ShouldMigrate(serverMode string, force bool) bool {
	return force || serverMode != "release"
}
