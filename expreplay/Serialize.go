package expreplay

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Save writes the contents of an ExperienceReplayer to w as a
// gzip-compressed gob
func Save(w io.Writer, e ExperienceReplayer) error {
	zw := gzip.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(e); err != nil {
		zw.Close()
		return fmt.Errorf("save: could not encode buffer: %v", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("save: could not compress buffer: %v", err)
	}
	return nil
}

// Load replaces the contents of an ExperienceReplayer with those
// written to r by Save
func Load(r io.Reader, e ExperienceReplayer) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("load: could not decompress buffer: %v", err)
	}
	defer zr.Close()

	if err := gob.NewDecoder(zr).Decode(e); err != nil {
		return fmt.Errorf("load: could not decode buffer: %v", err)
	}
	return nil
}
