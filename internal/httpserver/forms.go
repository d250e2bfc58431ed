package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
)

type registerForm struct {
	Username string `form:"username" validate:"required,min=2,max=64"`
	Email    string `form:"email"    validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
}

type loginForm struct {
	Email    string `form:"email"    validate:"required"`
	Password string `form:"password" validate:"required"`
}

type productForm struct {
	Name        string `form:"name"        validate:"required,max=200"`
	Price       string `form:"price"       validate:"required"`
	Description string `form:"description" validate:"max=5000"`
}

type reviewForm struct {
	Rating int    `form:"rating" validate:"min=1,max=5"`
	Body   string `form:"body"   validate:"required,max=2000"`
}

type FormValidator struct {
	v *validator.Validate
}

func NewFormValidator() *FormValidator {
	return &FormValidator{v: validator.New()}
}

func (fv *FormValidator) Validate(i any) error {
	if err := fv.v.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &service.ValidationError{Message: fieldMessage(verrs[0])}
		}
		return err
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "A valid email is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	default:
		return name + " is invalid"
	}
}

const multipartMemory = 32 << 20

// parseFormBody reads POST bodies up front so a read past the body limit
// surfaces as 413 instead of an empty form.
func parseFormBody(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if req.Method != http.MethodPost {
			return next(c)
		}

		var err error
		if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
			err = req.ParseMultipartForm(multipartMemory)
		} else {
			err = req.ParseForm()
		}
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return he
			}
			return echo.NewHTTPError(http.StatusBadRequest, "Malformed form").SetInternal(err)
		}
		return next(c)
	}
}

// bindForm binds and validates; failures come back as validation errors.
func bindForm(c echo.Context, dst any, bindMsg string) error {
	if err := c.Bind(dst); err != nil {
		return &service.ValidationError{Message: bindMsg}
	}
	return c.Validate(dst)
}

// readUpload loads an optional image field into memory, bounded by max.
func readUpload(c echo.Context, field string, max int64) (service.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return service.Upload{}, nil
		}
		return service.Upload{}, err
	}
	if fh.Size > max {
		return service.Upload{}, &service.ValidationError{Message: fmt.Sprintf("Image must be smaller than %d KB", max/1024)}
	}

	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return service.Upload{}, err
	}
	if int64(len(data)) > max {
		return service.Upload{}, &service.ValidationError{Message: fmt.Sprintf("Image must be smaller than %d KB", max/1024)}
	}
	if len(data) == 0 {
		return service.Upload{}, nil
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return service.Upload{}, &service.ValidationError{Message: "Only image uploads are allowed"}
	}
	return service.Upload{Data: data, ContentType: ct}, nil
}
