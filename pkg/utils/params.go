package utils

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeParams copies a loosely typed parameter map into out, matching on
// `json` tags. Numeric strings and numbers are converted as needed, so
// {"limit": "10"} and {"limit": 10.0} both decode into an int field.
// Embedded structs are flattened.
func DecodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
