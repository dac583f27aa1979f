package database

import (
	"sync"

	"upam/pkg/cache"
	"upam/pkg/config"
)

var (
	cacheInstance *cache.Cache
	cacheOnce     sync.Once
)

// GetCache 获取共享缓存的单例实例
func GetCache() *cache.Cache {
	cacheOnce.Do(func() {
		cfg := config.GetConfig()
		cacheInstance = cache.New(&cache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	})
	return cacheInstance
}

// CloseCache 关闭Redis连接
func CloseCache() error {
	if cacheInstance != nil {
		return cacheInstance.Close()
	}
	return nil
}
