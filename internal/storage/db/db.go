package db

import (
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// MemoryName 内存数据库名称
const MemoryName = ":memory:"

// Options 数据库配置选项
type Options struct {
	// Name 数据库文件名，位于平台默认数据目录下
	Name string
	// FullPath 完整路径，设置后忽略 Name
	FullPath string
	// Prefix 表前缀
	Prefix string
	// Logger GORM 日志实现
	Logger logger.Interface
}

// New 创建并初始化数据库连接
func New(opts Options) (*gorm.DB, error) {
	dsn, err := resolvePath(opts)
	if err != nil {
		return nil, err
	}

	if dsn != MemoryName {
		// 确保数据库目录存在
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, err
		}
	}

	cfg := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   opts.Prefix,
			SingularTable: true,
		},
	}
	if opts.Logger != nil {
		cfg.Logger = opts.Logger
	}

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dsn == MemoryName {
		// 每个连接都是独立的内存库，只能保留一个
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(4)
		sqlDB.SetMaxOpenConns(8)
	}

	return db, nil
}

// Migrate 执行数据库自动迁移
func Migrate(db *gorm.DB, models ...any) error {
	return db.AutoMigrate(models...)
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolvePath(opts Options) (string, error) {
	if opts.FullPath != "" {
		return opts.FullPath, nil
	}
	if opts.Name == MemoryName {
		return MemoryName, nil
	}
	return GetDefaultPath(opts.Name)
}

// GetDefaultPath 获取默认数据库文件路径，优先 XDG_DATA_HOME，其次系统配置目录
func GetDefaultPath(dbName string) (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = dir
	}
	return filepath.Join(base, "netmodifier", dbName), nil
}
