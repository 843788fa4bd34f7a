package utils

import "strconv"

// Int64ToStr converts an int64 to its string representation.
func Int64ToStr(num int64) string {
	return strconv.FormatInt(num, 10)
}

// StrToInt64 converts a string to an int64. Handlers use it for path and
// query parameters; a failed parse means a malformed identifier.
func StrToInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
