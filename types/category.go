package types

import (
	"fmt"
	"strings"
)

// Category is the coarse error classification scripts branch on.
// Values follow the host shell's ErrorCategory numbering so classified
// errors round-trip into host error records unchanged.
type Category int

// Category constants. Only the categories the classifier can produce are
// declared.
const (
	CategoryUnspecified      Category = 0
	CategoryOpenError        Category = 1
	CategoryInvalidData      Category = 6
	CategoryObjectNotFound   Category = 13
	CategoryPermissionDenied Category = 18
	CategoryReadError        Category = 22
	CategoryWriteError       Category = 23
)

var categoryNames = map[Category]string{
	CategoryUnspecified:      "NotSpecified",
	CategoryOpenError:        "OpenError",
	CategoryInvalidData:      "InvalidData",
	CategoryObjectNotFound:   "ObjectNotFound",
	CategoryPermissionDenied: "PermissionDenied",
	CategoryReadError:        "ReadError",
	CategoryWriteError:       "WriteError",
}

// String returns the host-shell name of the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is
// case-insensitive; "Unspecified" is accepted as an alias of NotSpecified.
func (c *Category) UnmarshalText(text []byte) error {
	s := string(text)
	if strings.EqualFold(s, "Unspecified") {
		*c = CategoryUnspecified
		return nil
	}
	for cat, name := range categoryNames {
		if strings.EqualFold(s, name) {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", s)
}
