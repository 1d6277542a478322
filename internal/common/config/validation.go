package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// StructLevelValidation is a check over a whole struct of one of Types, for rules that
// tags cannot express.
type StructLevelValidation struct {
	Fn    validator.StructLevelFunc
	Types []interface{}
}

// Validate runs the struct validations declared in config's tags, then the struct level ones.
func Validate(config interface{}, structLevel ...StructLevelValidation) error {
	validate := validator.New()
	for _, v := range structLevel {
		validate.RegisterStructValidation(v.Fn, v.Types...)
	}
	return validate.Struct(config)
}

func LogValidationErrors(err error) {
	if err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			log.Errorf("ConfigError: %v", err)
			return
		}
		for _, err := range validationErrors {
			fieldName := stripPrefix(err.Namespace())
			tag := err.Tag()
			switch tag {
			case "required":
				log.Errorf("ConfigError: Field %s is required but was not found", fieldName)
			default:
				log.Errorf("ConfigError: Field %s has invalid value %v: %s", fieldName, err.Value(), tag)
			}
		}
	}
}

func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}
