package db

import (
	"fmt"
	"net"
	"time"

	"auralis/config"
	"auralis/logger"
	"auralis/repository"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// mysqlDSN 由配置拼出 DSN
func mysqlDSN(cfg *config.Config) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.DBUser
	dsn.Passwd = cfg.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	dsn.DBName = cfg.DBName
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

// ConnectGormDB 建立 GORM 数据库连接
func ConnectGormDB(cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if !cfg.IsProduction() {
		level = gormlogger.Info
	}

	gdb, err := gorm.Open(mysql.Open(mysqlDSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
		// 禁用外键约束
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	// 获取底层的 sql.DB 并配置连接池
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("connected to MySQL with GORM", logger.String("database", cfg.DBName))
	return gdb, nil
}

// AutoMigrateModels 自动迁移仓库使用的表
func AutoMigrateModels(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(repository.Models()...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	logger.Info("models migrated successfully with GORM")
	return nil
}
