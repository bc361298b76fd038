package datastore

import (
	"net"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/logger"
)

// MySQLStore implements Interface on a MySQL server.
type MySQLStore struct {
	DataStore
	Settings conf.MySQLSettings
}

// dsn builds the driver connection string. Times are parsed into time.Time
// in the local zone.
func (store *MySQLStore) dsn() string {
	cfg := gomysql.NewConfig()
	cfg.User = store.Settings.Username
	cfg.Passwd = store.Settings.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(store.Settings.Host, store.Settings.Port)
	cfg.DBName = store.Settings.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects and migrates.
func (store *MySQLStore) Open() error {
	db, err := gorm.Open(mysql.Open(store.dsn()), gormConfig(store.Logger))
	if err != nil {
		store.Logger.Error("failed to open MySQL database",
			logger.String("host", store.Settings.Host),
			logger.String("port", store.Settings.Port),
			logger.String("database", store.Settings.Database),
			logger.Error(err))
		return dbError(err, "open_mysql")
	}

	store.DB = db
	store.Logger.Info("catalog opened",
		logger.String("db_type", "mysql"),
		logger.String("host", store.Settings.Host),
		logger.String("database", store.Settings.Database))
	return performAutoMigration(db, "mysql", store.Logger)
}

// Close closes the MySQL connection pool.
func (store *MySQLStore) Close() error {
	return store.closeDB("mysql")
}
