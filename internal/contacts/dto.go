package contacts

import (
	"strings"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	"github.com/angelmondragon/contactbook-backend/pkg/validation"
)

// Fields is the full set of values required to create a contact.
type Fields struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Phone    string `json:"phone" validate:"required,max=15"`
	Address  string `json:"address" validate:"required"`
	Timezone string `json:"timezone" validate:"required,max=50,timezone"`
}

func (f Fields) normalized() Fields {
	return Fields{
		Name:     strings.TrimSpace(f.Name),
		Email:    validation.NormalizeEmail(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		Address:  strings.TrimSpace(f.Address),
		Timezone: strings.TrimSpace(f.Timezone),
	}
}

// Patch carries the subset of fields to overwrite; nil fields are preserved.
type Patch struct {
	Name     *string `json:"name,omitempty" validate:"omitnil,min=1,max=255"`
	Email    *string `json:"email,omitempty" validate:"omitnil,email,max=255"`
	Phone    *string `json:"phone,omitempty" validate:"omitnil,min=1,max=15"`
	Address  *string `json:"address,omitempty" validate:"omitnil,min=1"`
	Timezone *string `json:"timezone,omitempty" validate:"omitnil,max=50,timezone"`
}

func (p Patch) empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Address == nil && p.Timezone == nil
}

func (p Patch) normalized() Patch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		s := strings.TrimSpace(*v)
		return &s
	}
	out := Patch{
		Name:     trim(p.Name),
		Phone:    trim(p.Phone),
		Address:  trim(p.Address),
		Timezone: trim(p.Timezone),
	}
	if p.Email != nil {
		email := validation.NormalizeEmail(*p.Email)
		out.Email = &email
	}
	return out
}

// columns maps the patch onto the column set handed to GORM's Updates.
func (p Patch) columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Address != nil {
		cols["address"] = *p.Address
	}
	if p.Timezone != nil {
		cols["timezone"] = *p.Timezone
	}
	return cols
}

// BatchItem is an update when ID is set and an insert otherwise.
type BatchItem struct {
	ID *int64 `json:"id,omitempty"`
	Patch
}

func (b BatchItem) fields() Fields {
	deref := func(v *string) string {
		if v == nil {
			return ""
		}
		return *v
	}
	return Fields{
		Name:     deref(b.Name),
		Email:    deref(b.Email),
		Phone:    deref(b.Phone),
		Address:  deref(b.Address),
		Timezone: deref(b.Timezone),
	}
}

// BatchResult summarizes a committed batch. IDs follow item order.
type BatchResult struct {
	Inserted int     `json:"inserted"`
	Updated  int     `json:"updated"`
	IDs      []int64 `json:"ids"`
}

// ImportResult summarizes a committed file import.
type ImportResult struct {
	Imported int     `json:"imported"`
	IDs      []int64 `json:"ids"`
}

// ContactDTO is the API representation of a contact.
type ContactDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromModel converts a row to its DTO with timestamps rendered in loc.
// A nil loc means UTC.
func FromModel(c models.Contact, loc *time.Location) ContactDTO {
	if loc == nil {
		loc = time.UTC
	}
	return ContactDTO{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Timezone:  c.Timezone,
		CreatedAt: c.CreatedAt.In(loc),
		UpdatedAt: c.UpdatedAt.In(loc),
	}
}

// ExportRow is one line of the CSV download.
type ExportRow struct {
	Name      string
	Email     string
	Phone     string
	Address   string
	Timezone  string
	CreatedAt time.Time
}
