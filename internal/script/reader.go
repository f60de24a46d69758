package script

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeError indicates that the script file could not be decoded by any of
// the attempted encodings. Attempted preserves the fallback order.
type DecodeError struct {
	Path      string
	Attempted []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode script file %s (attempted encodings: %s)",
		e.Path, strings.Join(e.Attempted, ", "))
}

// decoder is one strategy in the encoding fallback chain
type decoder struct {
	name   string
	decode func([]byte) (string, bool)
}

// fallbackDecoders is the ordered chain of encodings attempted when reading a
// script file; the first successful decode wins. ISO 8859-1 maps every byte
// value, so the latin-1 entry always succeeds and the entries after it only
// matter if the chain order changes.
var fallbackDecoders = []decoder{
	{
		name: "utf-8",
		decode: func(data []byte) (string, bool) {
			if !utf8.Valid(data) {
				return "", false
			}
			return string(data), true
		},
	},
	{name: "latin-1", decode: charmapDecoder(charmap.ISO8859_1)},
	{name: "cp1252", decode: charmapDecoder(charmap.Windows1252)},
	{name: "iso-8859-1", decode: charmapDecoder(charmap.ISO8859_1)},
}

func charmapDecoder(cm *charmap.Charmap) func([]byte) (string, bool) {
	return func(data []byte) (string, bool) {
		decoded, err := cm.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		// The decoder substitutes U+FFFD for bytes the charmap does not
		// define; treat that as a failed decode so the chain moves on
		if strings.ContainsRune(string(decoded), utf8.RuneError) {
			return "", false
		}
		return string(decoded), true
	}
}

// ReadScriptFile reads a script file as text, trying each fallback encoding
// in order. It fails with *DecodeError only if no encoding applies.
func (sg *Segmenter) ReadScriptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script file %s: %w", path, err)
	}

	attempted := make([]string, 0, len(fallbackDecoders))
	for _, d := range fallbackDecoders {
		attempted = append(attempted, d.name)
		if text, ok := d.decode(data); ok {
			return text, nil
		}
	}

	return "", &DecodeError{Path: path, Attempted: attempted}
}

// SegmentFile reads the script at path with encoding fallback and segments it
func (sg *Segmenter) SegmentFile(path string) ([]Scene, error) {
	text, err := sg.ReadScriptFile(path)
	if err != nil {
		return nil, err
	}
	return sg.Segment(text), nil
}
