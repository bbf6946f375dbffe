package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Since returns the milliseconds elapsed since start (Unix ms).
func Since(startMs int64) int64 { return NowMs() - startMs }
