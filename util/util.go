// Package util holds small formatting helpers shared by the table printers
package util

import "strings"

// IndentExpand repeats indent growth times. A negative growth is treated as zero.
func IndentExpand(indent string, growth int) string {
	return strings.Repeat(indent, max(growth, 0))
}
