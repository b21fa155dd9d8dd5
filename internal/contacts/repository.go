package contacts

import (
	"context"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/db"
	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository runs contact queries for an already resolved owner id. Every
// statement is scoped by user_id; reads and updates also skip soft-deleted
// rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a contacts repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) live(ctx context.Context, userID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("user_id = ? AND is_deleted = ?", userID, false)
}

// Create inserts a live contact with both timestamps set to now.
func (r *Repository) Create(ctx context.Context, userID int64, f Fields, now time.Time) (*models.Contact, error) {
	contact := &models.Contact{
		UserID:    userID,
		Name:      f.Name,
		Email:     f.Email,
		Phone:     f.Phone,
		Address:   f.Address,
		Timezone:  f.Timezone,
		CreatedAt: now,
		UpdatedAt: now,
		IsDeleted: false,
	}
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateEmail(err)
		}
		return nil, storageFailure(err, "create contact")
	}
	return contact, nil
}

// List returns the owner's live contacts matching q. q must already be
// validated; SortBy is interpolated into the ORDER BY clause.
func (r *Repository) List(ctx context.Context, userID int64, q ListQuery) ([]models.Contact, error) {
	query := r.live(ctx, userID)
	if q.Name != "" {
		query = query.Where("name LIKE ?", "%"+q.Name+"%")
	}
	if q.Email != "" {
		query = query.Where("email LIKE ?", "%"+q.Email+"%")
	}
	if q.Timezone != "" {
		query = query.Where("timezone = ?", q.Timezone)
	}
	if q.Start != nil {
		query = query.Where("created_at >= ?", q.Start.UTC())
	}
	if q.End != nil {
		query = query.Where("created_at <= ?", q.End.UTC())
	}

	var rows []models.Contact
	if err := query.Order(q.orderClause()).Find(&rows).Error; err != nil {
		return nil, storageFailure(err, "list contacts")
	}
	return rows, nil
}

// Get loads one live contact owned by userID.
func (r *Repository) Get(ctx context.Context, userID, id int64) (*models.Contact, error) {
	var contact models.Contact
	res := r.live(ctx, userID).Where("id = ?", id).Limit(1).Find(&contact)
	if res.Error != nil {
		return nil, storageFailure(res.Error, "load contact")
	}
	if res.RowsAffected == 0 {
		return nil, notFoundOrForbidden(id)
	}
	return &contact, nil
}

// Update applies the patch to a live contact owned by userID.
func (r *Repository) Update(ctx context.Context, userID, id int64, p Patch, now time.Time) error {
	cols := p.columns()
	cols["updated_at"] = now

	res := r.live(ctx, userID).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, "") {
			return duplicateEmail(res.Error)
		}
		return storageFailure(res.Error, "update contact")
	}
	if res.RowsAffected == 0 {
		return notFoundOrForbidden(id)
	}
	return nil
}

// SoftDelete flags the contact as deleted. An already deleted contact of the
// same owner still matches, so repeating the call succeeds.
func (r *Repository) SoftDelete(ctx context.Context, userID, id int64, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"is_deleted": true,
			"updated_at": now,
		})
	if res.Error != nil {
		return storageFailure(res.Error, "delete contact")
	}
	if res.RowsAffected == 0 {
		return notFoundOrForbidden(id)
	}
	return nil
}

// Export returns every live contact of the owner in id order.
func (r *Repository) Export(ctx context.Context, userID int64) ([]ExportRow, error) {
	var rows []models.Contact
	err := r.live(ctx, userID).
		Select("name", "email", "phone", "address", "timezone", "created_at").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storageFailure(err, "export contacts")
	}

	out := make([]ExportRow, 0, len(rows))
	for _, c := range rows {
		out = append(out, ExportRow{
			Name:      c.Name,
			Email:     c.Email,
			Phone:     c.Phone,
			Address:   c.Address,
			Timezone:  c.Timezone,
			CreatedAt: c.CreatedAt.UTC(),
		})
	}
	return out, nil
}
