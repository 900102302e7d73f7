/*
Copyright © 2026 KevFet
*/

package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// randomIndex returns a uniformly random index in [0, n) using crypto/rand.
func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}

	// Rejection sampling to avoid modulo bias.
	limit := (uint64(1) << 63) / uint64(n) * uint64(n)
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		v := binary.BigEndian.Uint64(buf[:]) >> 1
		if v < limit {
			return int(v % uint64(n))
		}
	}
}
