package tracker

// Size 当前条目数（含尚未清理的过期条目）
func Size[K comparable, V any](t *Tracker[K, V]) int {
	n := 0
	t.pool.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
