package runtime

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/marshallshelly/shale-orm/pkg/registry"
	"github.com/marshallshelly/shale-orm/pkg/schema"
	"github.com/mattn/go-sqlite3"
)

// SQLite constraint failures carry "<TYPE> constraint failed: table.column"
// text. Foreign key failures name no column at all.
var (
	uniqueRe  = regexp.MustCompile(`UNIQUE constraint failed: (\w+)\.(\w+)`)
	notNullRe = regexp.MustCompile(`NOT NULL constraint failed: (\w+)\.(\w+)`)
	fkRe      = regexp.MustCompile(`FOREIGN KEY constraint failed`)
	checkRe   = regexp.MustCompile(`CHECK constraint failed: (\w+)`)
)

// Classify resolves an opaque store error into the typed error taxonomy.
// table scopes registry reverse lookups; the table named in the error text
// wins when the two disagree. Already classified errors pass through
// unchanged, and unrecognized errors come back as a StoreError wrapping the
// original, so classification never loses information.
func Classify(err error, table string) error {
	if err == nil {
		return nil
	}
	if alreadyClassified(err) {
		return err
	}

	msg := err.Error()

	var serr sqlite3.Error
	hasCode := errors.As(err, &serr)

	if m := uniqueRe.FindStringSubmatch(msg); m != nil ||
		(hasCode && (serr.ExtendedCode == sqlite3.ErrConstraintUnique || serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)) {
		v := &UniqueViolationError{Table: table, Err: err}
		if m != nil {
			v.Table = m[1]
			v.Field = m[2]
			if c, ok := registry.GetConstraint(v.Table, fmt.Sprintf("uq_%s_%s", v.Table, m[2])); ok {
				v.Field = c.Fields[0]
				v.Constraint = c.Name
			}
		}
		return v
	}

	if m := notNullRe.FindStringSubmatch(msg); m != nil ||
		(hasCode && serr.ExtendedCode == sqlite3.ErrConstraintNotNull) {
		v := &NotNullViolationError{Table: table, Err: err}
		if m != nil {
			v.Table = m[1]
			v.Field = m[2]
			if c, ok := registry.GetConstraint(v.Table, fmt.Sprintf("nn_%s_%s", v.Table, m[2])); ok {
				v.Field = c.Fields[0]
				v.Constraint = c.Name
			}
		}
		return v
	}

	if fkRe.MatchString(msg) || (hasCode && serr.ExtendedCode == sqlite3.ErrConstraintForeignKey) {
		v := &ForeignKeyViolationError{Table: table, Err: err}
		// The store names no column, so the field is only recoverable when
		// the table declares a single foreign key.
		var fks []registry.Constraint
		for _, c := range registry.TableConstraints(table) {
			if c.Kind == registry.ConstraintForeignKey {
				fks = append(fks, c)
			}
		}
		if len(fks) == 1 {
			v.Field = fks[0].Fields[0]
			v.Constraint = fks[0].Name
		}
		return v
	}

	if m := checkRe.FindStringSubmatch(msg); m != nil ||
		(hasCode && serr.ExtendedCode == sqlite3.ErrConstraintCheck) {
		v := &CheckViolationError{Table: table, Err: err}
		if m != nil {
			v.Constraint = m[1]
		}
		return v
	}

	return &StoreError{Table: table, Err: err}
}

func alreadyClassified(err error) bool {
	var (
		vErr  *schema.ValidationError
		uErr  *UniqueViolationError
		fkErr *ForeignKeyViolationError
		nnErr *NotNullViolationError
		ckErr *CheckViolationError
		dnErr *DoesNotExistError
		amErr *AmbiguousResultError
		stErr *StoreError
	)
	return errors.As(err, &vErr) ||
		errors.As(err, &uErr) ||
		errors.As(err, &fkErr) ||
		errors.As(err, &nnErr) ||
		errors.As(err, &ckErr) ||
		errors.As(err, &dnErr) ||
		errors.As(err, &amErr) ||
		errors.As(err, &stErr)
}
