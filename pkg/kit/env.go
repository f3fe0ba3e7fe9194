package kit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func Getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func GetenvInt(k string, def int) int {
	n, err := strconv.Atoi(Getenv(k, ""))
	if err != nil {
		return def
	}
	return n
}

// GetenvDuration accepts Go duration strings ("5s", "250ms").
func GetenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(Getenv(k, ""))
	if err != nil {
		return def
	}
	return d
}

// GetenvList splits a comma separated value, dropping blanks.
func GetenvList(k, def string) []string {
	var out []string
	for _, p := range strings.Split(Getenv(k, def), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
