package service

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ValidationError описывает неверный аргумент запроса
type ValidationError struct {
	Value string
	Name  string
	Cause string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("The argument '%s' must be %s", e.Value, e.Name)
	if e.Cause != "" {
		msg += ": " + e.Cause
	}
	return msg
}

func newValidationError(value, name, cause string) *ValidationError {
	return &ValidationError{Value: value, Name: name, Cause: cause}
}

var (
	trueArgs  = []string{"1", "true", "yes"}
	falseArgs = []string{"0", "false", "no"}

	listDelimiter = regexp.MustCompile(`[,\t ]+`)
)

// ValidBool разбирает булево значение: 1/true/yes или 0/false/no
func ValidBool(arg string) (bool, error) {
	value := strings.ToLower(strings.TrimSpace(arg))
	switch {
	case slices.Contains(trueArgs, value):
		return true, nil
	case slices.Contains(falseArgs, value):
		return false, nil
	default:
		return false, newValidationError(arg, fmt.Sprintf("bool (%v or %v)", trueArgs, falseArgs), "")
	}
}

// ValidNumber разбирает число, допускаются дробные значения
func ValidNumber(arg string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, newValidationError(arg, "float", "")
	}
	return value, nil
}

// ValidBoundedInt разбирает целое число в диапазоне [min, max]
func ValidBoundedInt(arg, name string, min, max int) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, newValidationError(arg, name, "")
	}
	if value < min {
		return 0, newValidationError(arg, name, fmt.Sprintf("value should be >= %d", min))
	}
	if value > max {
		return 0, newValidationError(arg, name, fmt.Sprintf("value should be <= %d", max))
	}
	return value, nil
}

// ValidIntF0 разбирает неотрицательное целое число
func ValidIntF0(arg string) (int, error) {
	return ValidBoundedInt(arg, "int (>=0)", 0, math.MaxInt)
}

// ValidStreamQuality разбирает качество JPEG (1..100)
func ValidStreamQuality(arg string) (int, error) {
	return ValidBoundedInt(arg, "stream quality", 1, 100)
}

// ValidStringList разбивает строку по запятым и пробелам и проверяет каждый элемент
func ValidStringList(arg, name string, subval func(string) (string, error)) ([]string, error) {
	items := make([]string, 0)
	for _, item := range listDelimiter.Split(strings.TrimSpace(arg), -1) {
		if item == "" {
			continue
		}
		if subval != nil {
			checked, err := subval(item)
			if err != nil {
				return nil, newValidationError(arg, name, err.Error())
			}
			item = checked
		}
		items = append(items, item)
	}
	return items, nil
}

// CheckStringInList проверяет, что значение входит в список допустимых
func CheckStringInList(arg, name string, variants []string) (string, error) {
	value := strings.TrimSpace(arg)
	if !slices.Contains(variants, value) {
		return "", newValidationError(arg, name, fmt.Sprintf("must be one of %v", variants))
	}
	return value, nil
}
