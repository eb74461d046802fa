package heapguard

import (
	"path/filepath"
	"runtime"
	"strconv"
)

// Here returns a "file:line" annotation for the caller, suitable as the site
// argument of tracked operations. The tracker treats the annotation as
// opaque; any string works, this helper just matches the format the reports
// were designed around.
func Here() string {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return "unknown:0"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
