package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// citiesFile is the layout of the YAML city list.
type citiesFile struct {
	Cities []domain.CityConfig `yaml:"cities" validate:"required,min=1,dive"`
}

// LoadCities reads the ordered city list from a YAML file.
func LoadCities(path string) ([]domain.CityConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cities file: %w", err)
	}
	return ParseCities(data)
}

// ParseCities decodes and validates a YAML city list, preserving file order.
func ParseCities(data []byte) ([]domain.CityConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f citiesFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse cities file: %w", err)
	}

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid cities file: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("invalid cities file: %w", err)
	}
	return f.Cities, nil
}
