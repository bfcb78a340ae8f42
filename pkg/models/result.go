package models

// SyncResult is the outcome of syncing one provider.
type SyncResult struct {
	Provider  string
	Namespace string
	Total     int
	Synced    int
	Cached    int
	Skipped   int
	Errors    []string
}

// Success reports whether the sync finished without any errors.
func (r SyncResult) Success() bool {
	return len(r.Errors) == 0
}

// CacheStats describes the on-disk state of one namespace's cache.
type CacheStats struct {
	Namespace  string
	FileCount  int
	TotalBytes int64
	Directory  string
}
