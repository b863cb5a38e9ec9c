package bytecode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Magic prefixes every encoded class file.
const Magic = "HKC\x01"

// schemaVersion is bumped whenever the Class layout changes.
const schemaVersion uint16 = 1

// FileExt is the extension of encoded classes.
const FileExt = ".hkc"

// ErrBadMagic reports input that is not an encoded class.
var ErrBadMagic = errors.New("not a hookgen class file")

type envelope struct {
	Schema uint16 `msgpack:"schema"`
	Class  *Class `msgpack:"class"`
}

// Encode writes c to w.
func Encode(w io.Writer, c *Class) error {
	if _, err := io.WriteString(w, Magic); err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(&envelope{Schema: schemaVersion, Class: c})
}

// Decode reads one class from r.
func Decode(r io.Reader) (*Class, error) {
	head := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, err
	}
	if string(head) != Magic {
		return nil, ErrBadMagic
	}
	var env envelope
	if err := msgpack.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode class: %w", err)
	}
	if env.Schema != schemaVersion {
		return nil, fmt.Errorf("class schema %d is not supported (want %d)", env.Schema, schemaVersion)
	}
	if env.Class == nil {
		return nil, fmt.Errorf("decode class: empty payload")
	}
	return env.Class, nil
}

// Marshal encodes c into a byte slice.
func Marshal(c *Class) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a class produced by Marshal.
func Unmarshal(data []byte) (*Class, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile decodes the class stored at path.
func ReadFile(path string) (*Class, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
