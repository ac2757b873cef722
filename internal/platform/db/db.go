package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	// sqlite の場合のみ使用（":memory:" も可）
	Path string `yaml:"path"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type LendingConfig struct {
	// 1日あたりの延滞料金。旧システムでは $10 と $1 の実装が混在していたため設定値にする
	FinePerDay float64 `yaml:"fine_per_day"`
	// 貸出期間のデフォルト日数
	LoanPeriodDays int `yaml:"loan_period_days"`
}

type Config struct {
	Mode    string         `yaml:"mode"`
	HTTP    HTTPConfig     `yaml:"http"`
	DB      DatabaseConfig `yaml:"database"`
	JWT     JWTConfig      `yaml:"jwt"`
	Lending LendingConfig  `yaml:"lending"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = DriverMySQL
	}
	if cfg.Lending.FinePerDay == 0 {
		cfg.Lending.FinePerDay = 10
	}
	if cfg.Lending.LoanPeriodDays == 0 {
		cfg.Lending.LoanPeriodDays = 14
	}
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	switch c.Driver {
	case DriverMySQL:
		return connectMySQL(c)
	case DriverSQLite:
		return connectSQLite(c)
	default:
		return nil, fmt.Errorf("未対応のDBドライバ: %s", c.Driver)
	}
}

func connectMySQL(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

func connectSQLite(c DatabaseConfig) (*sql.DB, error) {
	path := c.Path
	if path == "" {
		path = "library.db"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// sqlite はライターが1本なので、コネクションも1本に絞って直列化する
	db.SetMaxOpenConns(1)

	return db, nil
}
