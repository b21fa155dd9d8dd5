// Package contacts holds the HTTP handlers of the authenticated contact book.
package contacts

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/contactbook-backend/api/middleware"
	"github.com/angelmondragon/contactbook-backend/api/responses"
	"github.com/angelmondragon/contactbook-backend/api/validators"
	internalcontacts "github.com/angelmondragon/contactbook-backend/internal/contacts"
	"github.com/angelmondragon/contactbook-backend/internal/contacts/fileio"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
)

const (
	uploadField    = "file"
	sniffLen       = 512
	multipartSlack = 64 << 10
	exportFilename = "contacts.csv"
)

type batchRequest struct {
	Contacts []internalcontacts.BatchItem `json:"contacts"`
}

// ownerEmail reads the authenticated email placed on the context by the auth
// middleware.
func ownerEmail(r *http.Request) (string, error) {
	email := middleware.UserEmailFromContext(r.Context())
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return email, nil
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contacts service unavailable"))
}

func Create(svc internalcontacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		email, err := ownerEmail(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body internalcontacts.Fields
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contact, err := svc.Add(r.Context(), email, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contact)
	}
}

// List returns the caller's live contacts filtered by the query string.
func List(svc internalcontacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		email, err := ownerEmail(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), email, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func Update(svc internalcontacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		email, err := ownerEmail(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathInt64(chi.URLParam(r, "contactId"), "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body internalcontacts.Patch
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contact, err := svc.Update(r.Context(), email, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contact)
	}
}

func Delete(svc internalcontacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		email, err := ownerEmail(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathInt64(chi.URLParam(r, "contactId"), "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), email, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "contact deleted")
	}
}

func Batch(svc internalcontacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		email, err := ownerEmail(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body batchRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BatchUpsert(r.Context(), email, body.Contacts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Import accepts a multipart upload under the "file" field and imports every
// row in one transaction.
func Import(svc internalcontacts.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		email, err := ownerEmail(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)
		file, header, err := r.FormFile(uploadField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, uploadError(err, maxBytes))
			return
		}
		defer file.Close()
		if header.Size > maxBytes {
			responses.WriteError(r.Context(), logg, w, tooLarge(maxBytes))
			return
		}

		head := make([]byte, sniffLen)
		n, err := io.ReadFull(file, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read upload"))
			return
		}
		head = head[:n]
		if n == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "uploaded file is empty"))
			return
		}

		format, err := fileio.Detect(header.Filename, head)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"upload_name":   header.Filename,
			"upload_format": string(format),
			"upload_size":   header.Size,
		})
		rows := fileio.Rows(io.MultiReader(bytes.NewReader(head), file), format)
		result, err := svc.Import(ctx, email, rows)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(logg.WithField(ctx, "imported", result.Imported), "contacts.imported")
		responses.WriteSuccess(w, result)
	}
}

// Export streams every live contact of the caller as a CSV attachment.
func Export(svc internalcontacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		email, err := ownerEmail(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ExportAll(r.Context(), email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var buf bytes.Buffer
		if err := fileio.WriteCSV(&buf, rows); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "export failed"))
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func parseListQuery(r *http.Request) (internalcontacts.ListQuery, error) {
	values := r.URL.Query()
	q := internalcontacts.ListQuery{
		Name:     strings.TrimSpace(values.Get("name")),
		Email:    strings.TrimSpace(values.Get("email")),
		Timezone: strings.TrimSpace(values.Get("timezone")),
		SortBy:   values.Get("sort_by"),
		Order:    values.Get("order"),
	}

	start, err := validators.ParseQueryTime(r, "start_date", false)
	if err != nil {
		return q, err
	}
	end, err := validators.ParseQueryTime(r, "end_date", true)
	if err != nil {
		return q, err
	}
	q.Start, q.End = start, end
	return q, nil
}

func uploadError(err error, maxBytes int64) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return tooLarge(maxBytes)
	}
	if errors.Is(err, http.ErrMissingFile) {
		return pkgerrors.New(pkgerrors.CodeValidation, "file is required").
			WithDetails(map[string]string{uploadField: "is required"})
	}
	if errors.Is(err, http.ErrNotMultipart) {
		return pkgerrors.Wrap(pkgerrors.CodeUnsupported, err, "request must be multipart/form-data")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload")
}

func tooLarge(maxBytes int64) error {
	return pkgerrors.New(pkgerrors.CodeTooLarge, "uploaded file exceeds the size limit").
		WithDetails(map[string]any{"max_bytes": maxBytes})
}
