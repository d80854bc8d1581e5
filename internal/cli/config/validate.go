package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/flowdoc/internal/docs"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Names that survive sanitizing unchanged are valid sheet names.
	_ = v.RegisterValidation("sheetname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return name != "" && docs.SanitizeSheetName(name) == name && !docs.IsReservedSheetName(name)
	})
	return v
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	key := fieldKey(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "sheetname":
		return fmt.Sprintf("%s %q is not a valid sheet name (max %d characters, none of :\\/?*[])",
			key, fe.Value(), docs.MaxSheetNameLength)
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

// fieldKey maps a validator namespace like "Config.Report.LinkText" to the
// configuration key "report.link_text".
func fieldKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if key, ok := fieldKeys[p]; ok {
			parts[i] = key
		} else {
			parts[i] = strings.ToLower(p)
		}
	}
	return strings.Join(parts, ".")
}

var fieldKeys = map[string]string{
	"OutputFormat": "output",
	"LogLevel":     "log_level",
	"LogFormat":    "log_format",
	"IndexSheet":   "index_sheet",
	"LinkText":     "link_text",
	"MaxUploadMB":  "max_upload_mb",
}
