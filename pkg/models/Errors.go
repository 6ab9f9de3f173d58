package models

import (
	"fmt"
)

var (
	ErrInvalidTableName = fmt.Errorf("invalid table name")
	ErrMissingKey       = fmt.Errorf("missing key")
)
