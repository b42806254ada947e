package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/memevote/backend/errs"
	"github.com/memevote/backend/services"
)

// DefaultMaxUploadMB bounds multipart request bodies unless MAX_UPLOAD_MB is set.
const DefaultMaxUploadMB = 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	// report json names so the field in an error matches the request body
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// decodeJSON reads the request body into dst and validates it.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.NewInvalidJSONError(err)
	}
	return validateStruct(dst)
}

func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError converts the first failed rule into an ApiErr.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errs.NewBadRequestError(err.Error())
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return errs.NewMissingRequiredFieldError(fe.Field())
	case "min":
		return errs.NewInvalidFieldError(fe.Field(), fmt.Sprintf("must be at least %s characters", fe.Param()))
	case "max":
		return errs.NewInvalidFieldError(fe.Field(), fmt.Sprintf("must be at most %s characters", fe.Param()))
	case "email":
		return errs.NewInvalidFieldError(fe.Field(), "must be a valid email address")
	default:
		return errs.NewInvalidFieldError(fe.Field(), fmt.Sprintf("failed %s validation", fe.Tag()))
	}
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errs.NewInvalidFieldError(name, "must be a positive integer")
	}
	return uint(id), nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewInvalidFieldError(name, "must be an integer")
	}
	return n, nil
}

// pageRequest reads page, size and sort from the query string.
func pageRequest(r *http.Request) (services.PageRequest, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return services.PageRequest{}, err
	}
	size, err := queryInt(r, "size")
	if err != nil {
		return services.PageRequest{}, err
	}
	sort, err := services.ParseSort(r.URL.Query().Get("sort"))
	if err != nil {
		return services.PageRequest{}, err
	}
	return services.NewPageRequest(page, size, sort)
}

// listValues accepts a list given as repeated values, comma separated values, or a JSON
// array, in any mix.
func listValues(raw []string) []string {
	var values []string
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if strings.HasPrefix(entry, "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(entry), &decoded); err == nil {
				values = append(values, decoded...)
				continue
			}
		}
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}

// parseMultipart reads a multipart body of at most maxBytes.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewMaxBodySizeExceededError(maxBytes)
		}
		return errs.NewMalformedPayloadError("multipart", err)
	}
	return nil
}

func formFiles(r *http.Request, name string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File[name]
}

func readUpload(fh *multipart.FileHeader) (services.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, errs.NewImageError("read", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.Upload{}, errs.NewImageError("read", err)
	}
	return services.Upload{Filename: fh.Filename, Data: data}, nil
}

// readFormPart returns a multipart part sent either as a plain field or as a file.
func readFormPart(r *http.Request, name string) ([]byte, bool, error) {
	if values := r.MultipartForm.Value[name]; len(values) > 0 {
		return []byte(values[0]), true, nil
	}
	files := formFiles(r, name)
	if len(files) == 0 {
		return nil, false, nil
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, true, errs.NewMalformedPayloadError(name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, true, errs.NewMalformedPayloadError(name, err)
	}
	return data, true, nil
}

// formList reads a list field sent as plain values or as a single file part.
func formList(r *http.Request, name string) ([]string, error) {
	if values := r.MultipartForm.Value[name]; len(values) > 0 {
		return listValues(values), nil
	}
	raw, ok, err := readFormPart(r, name)
	if err != nil || !ok {
		return nil, err
	}
	return listValues([]string{string(raw)}), nil
}
