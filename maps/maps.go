package maps

import (
	"fmt"
	"reflect"
)

const (
	expectedKeyMissing    = "key '%s' is not present, got %+v"
	expectedValueMismatch = "value for key '%s' does not match: expected '%T(%v)' but got '%T(%v)'"
)

// Contains checks if map is subset of another map, nested maps are compared as subsets too
//
//	Contains({"x": 1, "y": 2}, {"x": 1})                                  - TRUE
//	Contains({"x": 1, "y": 2}, {"x": 2})                                  - FALSE
//	Contains({"x": 1, "y": {"a": "1", "b": "2"}}, {"y": {"a": "1"}})      - TRUE
func Contains(actual, expectedSubSet map[string]any) bool {
	ok, _ := ContainsWithReason(actual, expectedSubSet)
	return ok
}

// ContainsWithReason is Contains that also explains the first mismatch
func ContainsWithReason(actual, expectedSubSet map[string]any) (bool, string) {
	if expectedSubSet == nil {
		return true, ""
	}

	if actual == nil {
		return false, "actual is nil"
	}

	for k, expected := range expectedSubSet {
		value, ok := actual[k]
		if !ok {
			return false, fmt.Sprintf(expectedKeyMissing, k, actual)
		}

		if expectedMap, ok := expected.(map[string]any); ok {
			valueMap, ok := value.(map[string]any)
			if !ok {
				return false, fmt.Sprintf("for key '%s', expected value of type 'map' but got '%T'", k, value)
			}

			if ok, reason := ContainsWithReason(valueMap, expectedMap); !ok {
				return false, fmt.Sprintf("for key '%s': %s", k, reason)
			}
			continue
		}

		if !reflect.DeepEqual(value, expected) {
			return false, fmt.Sprintf(expectedValueMismatch, k, expected, expected, value, value)
		}
	}
	return true, ""
}
