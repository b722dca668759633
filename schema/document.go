package schema

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/typedmem/errors"
)

// Document is a set of instances of one named type.
type Document struct {
	Type   string `toml:"type" cbor:"type"`
	Values []any  `toml:"values" cbor:"values"`
}

var cborDecMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

var cborEncMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// ReadDocument loads a .toml or .cbor value document.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindNotFound, err, "read document")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return DecodeTOMLDocument(data)
	case ".cbor":
		return DecodeCBORDocument(data)
	}
	return nil, errors.Unsupported(errors.PhaseSchema, "document file type "+filepath.Ext(path))
}

func DecodeTOMLDocument(data []byte) (*Document, error) {
	var doc Document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindBadValue, err, "parse TOML document")
	}
	return doc.validate()
}

func DecodeCBORDocument(data []byte) (*Document, error) {
	var doc Document
	if err := cborDecMode.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindBadValue, err, "parse CBOR document")
	}
	return doc.validate()
}

// EncodeCBOR writes the document in canonical CBOR.
func (d *Document) EncodeCBOR() ([]byte, error) {
	data, err := cborEncMode.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindBadValue, err, "encode CBOR document")
	}
	return data, nil
}

func (d *Document) validate() (*Document, error) {
	if d.Type == "" {
		return nil, errors.New(errors.PhaseSchema, errors.KindInvalidArgument).
			Detail("document has no type").
			Build()
	}
	return d, nil
}
