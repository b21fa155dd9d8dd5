package contacts

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/db"
	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/validation"
	"gorm.io/gorm"
)

// Service exposes the contact operations of an authenticated owner. The
// owner is always addressed by email and resolved once per call.
type Service interface {
	Add(ctx context.Context, ownerEmail string, fields Fields) (*ContactDTO, error)
	List(ctx context.Context, ownerEmail string, q ListQuery) ([]ContactDTO, error)
	Update(ctx context.Context, ownerEmail string, id int64, patch Patch) (*ContactDTO, error)
	Delete(ctx context.Context, ownerEmail string, id int64) error
	BatchUpsert(ctx context.Context, ownerEmail string, items []BatchItem) (*BatchResult, error)
	ExportAll(ctx context.Context, ownerEmail string) ([]ExportRow, error)
	Import(ctx context.Context, ownerEmail string, rows iter.Seq2[map[string]string, error]) (*ImportResult, error)
}

type ownerResolver interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type ServiceParams struct {
	Repo    *Repository
	DB      *db.Client
	Owners  ownerResolver
	MaxRows int
	Now     func() time.Time
}

type service struct {
	repo    *Repository
	db      *db.Client
	owners  ownerResolver
	maxRows int
	now     func() time.Time
}

// NewService constructs a contact service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("contact repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Owners == nil {
		return nil, fmt.Errorf("owner resolver required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		db:      params.DB,
		owners:  params.Owners,
		maxRows: params.MaxRows,
		now:     now,
	}, nil
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

func (s *service) resolveOwner(ctx context.Context, ownerEmail string) (int64, error) {
	user, err := s.owners.GetUserByEmail(ctx, ownerEmail)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (s *service) Add(ctx context.Context, ownerEmail string, fields Fields) (*ContactDTO, error) {
	fields = fields.normalized()
	if err := validation.Struct(fields); err != nil {
		return nil, err
	}
	ownerID, err := s.resolveOwner(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}

	contact, err := s.repo.Create(ctx, ownerID, fields, s.clock())
	if err != nil {
		return nil, err
	}
	dto := FromModel(*contact, time.UTC)
	return &dto, nil
}

func (s *service) List(ctx context.Context, ownerEmail string, q ListQuery) ([]ContactDTO, error) {
	loc, err := q.validate()
	if err != nil {
		return nil, err
	}
	ownerID, err := s.resolveOwner(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}
	out := make([]ContactDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row, loc))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, ownerEmail string, id int64, patch Patch) (*ContactDTO, error) {
	patch = patch.normalized()
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	ownerID, err := s.resolveOwner(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}

	var updated *models.Contact
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, ownerID, id, patch, s.clock()); err != nil {
			return err
		}
		contact, err := repo.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		updated = contact
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(*updated, time.UTC)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, ownerEmail string, id int64) error {
	ownerID, err := s.resolveOwner(ctx, ownerEmail)
	if err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, ownerID, id, s.clock())
}

// BatchUpsert applies every item inside one transaction. The first failing
// item rolls the whole batch back and is named in the error details.
func (s *service) BatchUpsert(ctx context.Context, ownerEmail string, items []BatchItem) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one contact is required")
	}

	prepared := make([]BatchItem, len(items))
	for i, item := range items {
		item.Patch = item.Patch.normalized()
		var err error
		if item.ID != nil {
			err = validatePatch(item.Patch)
		} else {
			err = validation.Struct(item.fields())
		}
		if err != nil {
			return nil, batchItemError(err, i, item.ID)
		}
		prepared[i] = item
	}

	ownerID, err := s.resolveOwner(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{IDs: make([]int64, 0, len(prepared))}
	now := s.clock()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i, item := range prepared {
			if item.ID != nil {
				if err := repo.Update(ctx, ownerID, *item.ID, item.Patch, now); err != nil {
					return batchItemError(err, i, item.ID)
				}
				result.Updated++
				result.IDs = append(result.IDs, *item.ID)
				continue
			}
			contact, err := repo.Create(ctx, ownerID, item.fields(), now)
			if err != nil {
				return batchItemError(err, i, nil)
			}
			result.Inserted++
			result.IDs = append(result.IDs, contact.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ExportAll(ctx context.Context, ownerEmail string) ([]ExportRow, error) {
	ownerID, err := s.resolveOwner(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	return s.repo.Export(ctx, ownerID)
}

func validatePatch(p Patch) error {
	if p.empty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one field must be provided")
	}
	return validation.Struct(p)
}

// batchItemError keeps the code of err and attaches the failing position.
func batchItemError(err error, index int, id *int64) error {
	details := map[string]any{"index": index}
	if id != nil {
		details["id"] = *id
	}
	if fields := validation.FieldErrors(err); fields != nil {
		details["fields"] = fields
	}
	msg := fmt.Sprintf("contact %d in batch failed", index)
	if typed := pkgerrors.As(err); typed != nil {
		msg = fmt.Sprintf("%s: %s", msg, typed.Message())
	}
	return pkgerrors.Wrap(pkgerrors.CodeOf(err), err, msg).WithDetails(details)
}
