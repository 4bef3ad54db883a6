package cmd

import (
	"fmt"
	"strings"

	"github.com/alexiusacademia/gosewer/internal/validation"
)

func check(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func joinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}

func printWarnings(ws []validation.Warning) {
	if len(ws) == 0 {
		return
	}
	fmt.Println("WARNINGS:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	for _, w := range ws {
		fmt.Printf("  ⚠ %s\n", w)
	}
	fmt.Println()
}
