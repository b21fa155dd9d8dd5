package contacts

import (
	"context"
	"fmt"
	"iter"
	"strings"

	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/validation"
	"gorm.io/gorm"
)

// Import reads rows keyed by lower-cased column header, validates each one and
// inserts them all in a single transaction. Row numbers in errors count the
// header as row 1.
func (s *service) Import(ctx context.Context, ownerEmail string, rows iter.Seq2[map[string]string, error]) (*ImportResult, error) {
	if rows == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no rows to import")
	}

	var records []Fields
	line := 1
	for row, err := range rows {
		line++
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("row %d could not be read", line)).
				WithDetails(map[string]any{"row": line})
		}
		if isBlankRow(row) {
			continue
		}
		if s.maxRows > 0 && len(records) >= s.maxRows {
			return nil, pkgerrors.New(pkgerrors.CodeTooLarge, fmt.Sprintf("import is limited to %d contacts", s.maxRows)).
				WithDetails(map[string]any{"max_rows": s.maxRows})
		}

		fields := fieldsFromRow(row).normalized()
		if err := validation.Struct(fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("row %d is invalid", line)).
				WithDetails(map[string]any{"row": line, "fields": validation.FieldErrors(err)})
		}
		records = append(records, fields)
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file contains no contacts")
	}

	ownerID, err := s.resolveOwner(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{IDs: make([]int64, 0, len(records))}
	now := s.clock()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i, fields := range records {
			contact, err := repo.Create(ctx, ownerID, fields, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeOf(err), err, fmt.Sprintf("contact %s could not be imported", fields.Email)).
					WithDetails(map[string]any{"index": i, "email": fields.Email})
			}
			result.IDs = append(result.IDs, contact.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Imported = len(result.IDs)
	return result, nil
}

func fieldsFromRow(row map[string]string) Fields {
	return Fields{
		Name:     row["name"],
		Email:    row["email"],
		Phone:    row["phone"],
		Address:  row["address"],
		Timezone: row["timezone"],
	}
}

func isBlankRow(row map[string]string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
