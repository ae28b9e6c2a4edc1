package experiment

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/samuelfneumann/goatari/experiment/checkpointer"
)

// Metadata describes a run of the program
type Metadata struct {
	RunID   string      `json:"run_id"`
	Mode    string      `json:"mode"`
	Game    string      `json:"game"`
	Prefix  string      `json:"prefix"`
	Started time.Time   `json:"started"`
	Config  interface{} `json:"config"`
}

// WriteMetadata saves the metadata of a run as indented JSON
func WriteMetadata(path string, m Metadata) error {
	err := checkpointer.WriteFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
	if err != nil {
		return fmt.Errorf("writemetadata: %v", err)
	}
	return nil
}
