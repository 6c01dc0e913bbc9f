package transforms

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/rs/zerolog/log"
	"github.com/travigo/stopdensity/pkg/ctdf"
	"gopkg.in/yaml.v3"
)

var transforms []*TransformDefinition

var transformableTypes = map[string]reflect.Type{
	"ctdf.Stop":      reflect.TypeOf(ctdf.Stop{}),
	"ctdf.StopGroup": reflect.TypeOf(ctdf.StopGroup{}),
}

// SetupClient loads the transform definitions from a YAML list. An empty path clears them.
func SetupClient(path string) error {
	transforms = nil

	if path == "" {
		return nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading transforms: %w", err)
	}

	var definitions []*TransformDefinition
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)
	if err := decoder.Decode(&definitions); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding transforms %s: %w", path, err)
	}

	for i, definition := range definitions {
		inputType, exists := transformableTypes[definition.Type]
		if !exists {
			return fmt.Errorf("transform %d: unsupported type %q", i, definition.Type)
		}
		if err := definition.validate(definition.Type, inputType); err != nil {
			return fmt.Errorf("transform %d: %w", i, err)
		}
	}

	transforms = definitions

	log.Info().Int("transforms", len(transforms)).Str("file", path).Msg("Loaded transforms")

	return nil
}
