package regexutil

// Size 当前缓存条目数，仅供测试
func Size(c *Cache) int { return c.cache.Len() }
