package services

import (
	"fmt"
	"regexp"

	"github.com/adampresley/photos3/pkg/models"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,255}$`)

/*
ValidateTableName applies the DynamoDB table naming rules. The SQLite
backend uses the same rules so a name that works in one works in both,
and so the name is always safe to quote into SQL.
*/
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: '%s'", models.ErrInvalidTableName, name)
	}

	return nil
}

func quoteIdentifier(name string) string {
	return `"` + name + `"`
}
