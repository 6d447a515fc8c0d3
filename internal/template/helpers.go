package template

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// callHelper implements the six built-in helper functions spec.md §4.1
// rule 5 names: randomInt, randomFloat, randomChoice, uuid, isoDate,
// timestamp. Each returns its rendered string form or an error on
// malformed arguments.
func callHelper(name string, args []string) (string, error) {
	switch name {
	case "randomInt":
		return helperRandomInt(args)
	case "randomFloat":
		return helperRandomFloat(args)
	case "randomChoice":
		return helperRandomChoice(args)
	case "uuid":
		return uuid.NewString(), nil
	case "isoDate":
		return helperIsoDate(args)
	case "timestamp":
		return helperTimestamp(args)
	default:
		return "", fmt.Errorf("unknown helper %q", name)
	}
}

// helperIsoDate implements isoDate(daysOffset): daysOffset defaults to 0
// (now) and may be negative.
func helperIsoDate(args []string) (string, error) {
	offset := 0
	if len(args) >= 1 && strings.TrimSpace(args[0]) != "" {
		n, err := parseIntArg(args[0])
		if err != nil {
			return "", fmt.Errorf("isoDate daysOffset: %w", err)
		}
		offset = n
	}
	return time.Now().AddDate(0, 0, offset).UTC().Format(time.RFC3339), nil
}

// helperTimestamp implements timestamp(format) with
// format ∈ {unix,iso,readable,file}, defaulting to unix.
func helperTimestamp(args []string) (string, error) {
	format := "unix"
	if len(args) >= 1 && strings.TrimSpace(args[0]) != "" {
		format = strings.Trim(strings.TrimSpace(args[0]), `"'`)
	}
	now := time.Now()
	switch format {
	case "unix":
		return strconv.FormatInt(now.Unix(), 10), nil
	case "iso":
		return now.UTC().Format(time.RFC3339), nil
	case "readable":
		return now.Format("2006-01-02 15:04:05"), nil
	case "file":
		return now.Format("20060102-150405"), nil
	default:
		return "", fmt.Errorf("timestamp: unknown format %q", format)
	}
}

func helperRandomInt(args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("randomInt expects 2 args (min, max), got %d", len(args))
	}
	lo, err := parseIntArg(args[0])
	if err != nil {
		return "", fmt.Errorf("randomInt min: %w", err)
	}
	hi, err := parseIntArg(args[1])
	if err != nil {
		return "", fmt.Errorf("randomInt max: %w", err)
	}
	if hi < lo {
		return "", fmt.Errorf("randomInt: max %d < min %d", hi, lo)
	}
	return strconv.Itoa(lo + rand.Intn(hi-lo+1)), nil
}

func helperRandomFloat(args []string) (string, error) {
	if len(args) != 2 && len(args) != 3 {
		return "", fmt.Errorf("randomFloat expects 2 or 3 args (min, max, frac?), got %d", len(args))
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil {
		return "", fmt.Errorf("randomFloat min: %w", err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
	if err != nil {
		return "", fmt.Errorf("randomFloat max: %w", err)
	}
	if hi < lo {
		return "", fmt.Errorf("randomFloat: max %f < min %f", hi, lo)
	}
	frac := 2
	if len(args) == 3 {
		frac, err = parseIntArg(args[2])
		if err != nil {
			return "", fmt.Errorf("randomFloat frac: %w", err)
		}
	}
	val := lo + rand.Float64()*(hi-lo)
	return strconv.FormatFloat(val, 'f', frac, 64), nil
}

func helperRandomChoice(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("randomChoice expects at least one argument")
	}
	choice := args[rand.Intn(len(args))]
	return strings.Trim(choice, `"'`), nil
}
