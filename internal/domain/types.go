package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// URLList is stored as a single text column, one URL per line. NULL and empty text
// scan to an empty, non-nil list.
type URLList []string

const urlSeparator = "\n"

func (u URLList) Value() (driver.Value, error) {
	return strings.Join(u, urlSeparator), nil
}

func (u *URLList) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*u = URLList{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into URLList", value)
	}

	if raw == "" {
		*u = URLList{}
		return nil
	}
	*u = strings.Split(raw, urlSeparator)
	return nil
}
