package hook

import (
	"os"
	"sync"
)

var (
	fileCacheMu sync.RWMutex
	fileCache   = map[string]string{}
)

// readFileCached loads and caches a hook script file; hook files are
// read often (once per VU per loop iteration in the worst case) so
// caching avoids redundant disk I/O, mirroring internal/template's file
// cache for `{{template:<file>}}`.
func readFileCached(path string) (string, error) {
	fileCacheMu.RLock()
	if body, ok := fileCache[path]; ok {
		fileCacheMu.RUnlock()
		return body, nil
	}
	fileCacheMu.RUnlock()

	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	body := string(b)

	fileCacheMu.Lock()
	fileCache[path] = body
	fileCacheMu.Unlock()
	return body, nil
}
