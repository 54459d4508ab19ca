// internal/crawler/pagecall.go
package crawler

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"
)

var pageCallPattern = regexp.MustCompile(`(?:goPage|soPage)\s*\(\s*['"]?(\d+)['"]?\s*\)`)

// sandboxBudget bounds how long a captured handler may run in the VM
const sandboxBudget = 50 * time.Millisecond

// PageCalls returns the page numbers a pager handler passes to goPage/soPage,
// in call order. The handler runs in a goja VM with recording stubs; if that
// records nothing the raw text is scanned instead.
func PageCalls(script string) []int {
	src := strings.TrimSpace(script)
	if len(src) >= len("javascript:") && strings.EqualFold(src[:len("javascript:")], "javascript:") {
		src = src[len("javascript:"):]
	}
	if strings.TrimSpace(src) == "" {
		return nil
	}

	if calls := sandboxPageCalls(src); len(calls) > 0 {
		return calls
	}

	var calls []int
	for _, m := range pageCallPattern.FindAllStringSubmatch(script, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			calls = append(calls, n)
		}
	}
	return calls
}

// sandboxPageCalls runs src with goPage/soPage bound to recorders. Calls made
// before a runtime error are kept.
func sandboxPageCalls(src string) []int {
	vm := goja.New()

	var calls []int
	record := func(call goja.FunctionCall) goja.Value {
		if n, ok := pageArg(call.Argument(0)); ok {
			calls = append(calls, n)
		}
		return goja.Undefined()
	}
	for _, name := range []string{"goPage", "soPage"} {
		if err := vm.Set(name, record); err != nil {
			return nil
		}
	}

	timer := time.AfterFunc(sandboxBudget, func() {
		vm.Interrupt("pager handler exceeded budget")
	})
	defer timer.Stop()

	_, _ = vm.RunString("(function(){\n" + src + "\n})()")
	return calls
}

func pageArg(v goja.Value) (int, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, false
	}
	switch x := v.Export().(type) {
	case int64:
		if x >= 0 {
			return int(x), true
		}
	case float64:
		if x >= 0 && x == math.Trunc(x) {
			return int(x), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil && n >= 0 {
			return n, true
		}
	}
	return 0, false
}

func hasPage(calls []int, page int) bool {
	for _, n := range calls {
		if n == page {
			return true
		}
	}
	return false
}

func isScriptHref(href string) bool {
	return strings.Contains(strings.ToLower(href), "javascript:")
}
