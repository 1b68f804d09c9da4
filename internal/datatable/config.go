package datatable

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

const formatterTag = "formatter"

// Config is everything a page supplies when mounting a table.
type Config struct {
	Endpoint    string         `yaml:"endpoint" validate:"required"`
	Columns     []Column       `yaml:"columns" validate:"required,min=1,unique=Field,dive"`
	PageSize    int            `yaml:"page_size" validate:"gte=0,lte=500"`
	DefaultSort *Sort          `yaml:"sort"`
	Filters     map[string]any `yaml:"filters"`
	RowKey      string         `yaml:"row_key"`
	// DataField is a gjson path naming the rows array for endpoints with non-standard envelopes.
	DataField   string        `yaml:"data_field"`
	RowActions  []RowAction   `yaml:"row_actions" validate:"unique=ID,dive"`
	BulkActions []RowAction   `yaml:"bulk_actions" validate:"unique=ID,dive"`
	Render      RenderOptions `yaml:"render"`

	Handlers         map[string]ActionFunc `yaml:"-"`
	OnRowAction      ActionFunc            `yaml:"-"`
	PermissionPolicy PermissionPolicy      `yaml:"-"`
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterStructValidation(columnStructValidation, Column{})

	return v
}

func columnStructValidation(sl validator.StructLevel) {
	col, ok := sl.Current().Interface().(Column)
	if !ok {
		return
	}

	if col.Type == ColumnCustom && col.Formatter == nil {
		sl.ReportError(col.Formatter, "formatter", "Formatter", formatterTag, "")
	}
}

// Validate checks the configuration and returns a *ConfigError describing the first problem.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return configErrorFrom(fieldErrs[0])
		}
		return &ConfigError{Message: err.Error()}
	}

	if c.DefaultSort != nil && c.DefaultSort.Field != "" {
		col, ok := c.column(c.DefaultSort.Field)
		if !ok || !col.Sortable {
			return &ConfigError{Field: "sort.field", Message: fmt.Sprintf("%q is not a sortable column", c.DefaultSort.Field)}
		}
	}

	return nil
}

func (c Config) column(field string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Field == field {
			return col, true
		}
	}
	return Column{}, false
}

func configErrorFrom(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}

	var message string
	switch fe.Tag() {
	case "required":
		message = "is required"
	case "min":
		message = fmt.Sprintf("needs at least %s entries", fe.Param())
	case "unique":
		message = fmt.Sprintf("entries must have unique %s values", strings.ToLower(fe.Param()))
	case "oneof":
		message = fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		message = fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		message = fmt.Sprintf("must be at most %s", fe.Param())
	case formatterTag:
		message = "custom columns need a formatter"
	default:
		message = fmt.Sprintf("failed %q validation", fe.Tag())
	}

	return &ConfigError{Field: field, Message: message}
}
