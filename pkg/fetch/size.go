package fetch

import "strconv"

const (
	B  int64 = 1
	KB       = 1024 * B
	MB       = 1024 * KB
	GB       = 1024 * MB
	TB       = 1024 * GB
)

// ByteSize is a byte count that formats with a binary unit suffix.
type ByteSize int64

type sizeUnit struct {
	val    int64
	suffix string
}

var sizeUnits = []sizeUnit{
	{TB, "TB"},
	{GB, "GB"},
	{MB, "MB"},
	{KB, "KB"},
}

// String formats as e.g. "1.50 MB". Negative sizes are "unknown".
func (s ByteSize) String() string {
	n := int64(s)
	if n < 0 {
		return "unknown"
	}
	for _, u := range sizeUnits {
		if n >= u.val {
			return strconv.FormatFloat(float64(n)/float64(u.val), 'f', 2, 64) + " " + u.suffix
		}
	}
	return strconv.FormatInt(n, 10) + " B"
}
