package ledger

// persistDrift absorbs scheduler jitter so a write due "every N minutes" is
// not pushed to the next cycle by a few seconds.
const persistDrift int64 = 10

// ShouldPersist reports whether the snapshot must be written this cycle.
func ShouldPersist(anyChanged bool, now, lastPersist int64, cooldownMinutes int) bool {
	if anyChanged {
		return true
	}
	return now-lastPersist >= int64(cooldownMinutes)*60-persistDrift
}
