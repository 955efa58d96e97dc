/*
Package utils provides helper functions for the job feed sync service.
*/
package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return time.Now().Format("20060102150405") + "-" + RandomString(8)
}

// GenerateRunID generates an identifier for a sync run
func GenerateRunID() string {
	return "run_" + uuid.NewString()
}

// RandomString generates a random alphanumeric string of specified length
func RandomString(length int) string {
	var b strings.Builder
	for b.Len() < length {
		b.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return b.String()[:length]
}
