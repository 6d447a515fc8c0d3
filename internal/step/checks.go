package step

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vustorm/vustorm/internal/testplan"
	"github.com/vustorm/vustorm/pkg/jsonpath"
)

// CheckOutcome is one evaluated Check's verdict.
type CheckOutcome struct {
	Kind    string
	Passed  bool
	Message string
}

// runChecks evaluates every check in order, collecting all failures
// (spec.md §4.4 step 5: "All checks always run"). bodyText/status back
// text_contains/regex/status checks; durationMS backs response_time.
func runChecks(checks []testplan.Check, bodyText string, status int, durationMS float64) []CheckOutcome {
	outcomes := make([]CheckOutcome, 0, len(checks))
	for _, c := range checks {
		outcomes = append(outcomes, runCheck(c, bodyText, status, durationMS))
	}
	return outcomes
}

func runCheck(c testplan.Check, bodyText string, status int, durationMS float64) CheckOutcome {
	switch c.Kind {
	case "status":
		return checkStatus(c, status)
	case "response_time":
		return checkResponseTime(c, durationMS)
	case "json_path":
		return checkJSONPath(c, bodyText)
	case "text_contains":
		return checkTextContains(c, bodyText)
	case "regex":
		return checkRegex(c, bodyText)
	case "custom":
		return CheckOutcome{Kind: c.Kind, Passed: true, Message: "custom checks are evaluated by the handler"}
	default:
		return CheckOutcome{Kind: c.Kind, Passed: false, Message: fmt.Sprintf("unknown check kind %q", c.Kind)}
	}
}

func checkStatus(c testplan.Check, status int) CheckOutcome {
	expected, err := strconv.Atoi(strings.TrimSpace(c.Expected))
	if err != nil {
		return CheckOutcome{Kind: c.Kind, Passed: false, Message: fmt.Sprintf("status check: invalid expected %q", c.Expected)}
	}
	passed := compareInt(status, c.Operator, expected)
	return CheckOutcome{Kind: c.Kind, Passed: passed, Message: fmt.Sprintf("status %d %s %d", status, c.Operator, expected)}
}

func checkResponseTime(c testplan.Check, durationMS float64) CheckOutcome {
	expected, err := strconv.ParseFloat(strings.TrimSpace(c.Expected), 64)
	if err != nil {
		return CheckOutcome{Kind: c.Kind, Passed: false, Message: fmt.Sprintf("response_time check: invalid expected %q", c.Expected)}
	}
	passed := compareFloat(durationMS, c.Operator, expected)
	return CheckOutcome{Kind: c.Kind, Passed: passed, Message: fmt.Sprintf("duration %.2fms %s %.2fms", durationMS, c.Operator, expected)}
}

func checkJSONPath(c testplan.Check, bodyText string) CheckOutcome {
	value, err := jsonpath.Extract(bodyText, c.Path)
	if err != nil {
		return CheckOutcome{Kind: c.Kind, Passed: false, Message: fmt.Sprintf("json_path %q: %v", c.Path, err)}
	}
	actual := fmt.Sprintf("%v", value)
	passed := compareString(actual, c.Operator, c.Expected)
	return CheckOutcome{Kind: c.Kind, Passed: passed, Message: fmt.Sprintf("json_path %q = %q", c.Path, actual)}
}

func checkTextContains(c testplan.Check, bodyText string) CheckOutcome {
	passed := strings.Contains(bodyText, c.Expected)
	return CheckOutcome{Kind: c.Kind, Passed: passed, Message: fmt.Sprintf("body contains %q: %v", c.Expected, passed)}
}

func checkRegex(c testplan.Check, bodyText string) CheckOutcome {
	re, err := regexp.Compile(c.Expected)
	if err != nil {
		return CheckOutcome{Kind: c.Kind, Passed: false, Message: fmt.Sprintf("regex %q: %v", c.Expected, err)}
	}
	passed := re.MatchString(bodyText)
	return CheckOutcome{Kind: c.Kind, Passed: passed, Message: fmt.Sprintf("regex %q matched: %v", c.Expected, passed)}
}

func compareInt(actual int, op string, expected int) bool {
	switch op {
	case "eq", "==", "":
		return actual == expected
	case "ne", "!=":
		return actual != expected
	case "lt", "<":
		return actual < expected
	case "lte", "<=":
		return actual <= expected
	case "gt", ">":
		return actual > expected
	case "gte", ">=":
		return actual >= expected
	default:
		return false
	}
}

func compareFloat(actual float64, op string, expected float64) bool {
	switch op {
	case "eq", "==":
		return actual == expected
	case "ne", "!=":
		return actual != expected
	case "lt", "<", "":
		return actual < expected
	case "lte", "<=":
		return actual <= expected
	case "gt", ">":
		return actual > expected
	case "gte", ">=":
		return actual >= expected
	default:
		return false
	}
}

func compareString(actual string, op string, expected string) bool {
	switch op {
	case "eq", "==", "":
		return actual == expected
	case "ne", "!=":
		return actual != expected
	case "contains":
		return strings.Contains(actual, expected)
	default:
		return false
	}
}
