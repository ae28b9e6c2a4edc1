package experiment

import (
	"fmt"
	"image"
	"os"

	"github.com/fogleman/gg"
	"github.com/samuelfneumann/goatari/experiment/checkpointer"
	"github.com/samuelfneumann/goatari/frame"
)

// Dumper saves the screens and frames seen while playing episodes.
// Screens are saved as <screenPrefix><step>.png, with step zero padded
// to five digits and restarting at each episode. Frames are saved as
// raw intensities in <binaryPrefix><k>.bin, where k counts every frame
// dumped by the Dumper.
type Dumper struct {
	screenPrefix string
	binaryPrefix string
	nextBinary   func() string
}

// NewDumper returns a new Dumper. An empty prefix disables the
// corresponding dump. If both prefixes are empty, nil is returned.
func NewDumper(screenPrefix, binaryPrefix string) *Dumper {
	if screenPrefix == "" && binaryPrefix == "" {
		return nil
	}
	d := &Dumper{
		screenPrefix: screenPrefix,
		binaryPrefix: binaryPrefix,
	}
	if binaryPrefix != "" {
		d.nextBinary = checkpointer.FilenameEnumerator(-1, binaryPrefix,
			".bin")
	}
	return d
}

// Dump saves the raw screen and the preprocessed frame of a step of an
// episode
func (d *Dumper) Dump(step int, screen image.Image, f *frame.Frame) error {
	if d.screenPrefix != "" {
		filename := fmt.Sprintf("%s%05d.png", d.screenPrefix, step)
		if err := gg.SavePNG(filename, screen); err != nil {
			return fmt.Errorf("dump: could not save screen: %v", err)
		}
	}

	if d.binaryPrefix != "" {
		if err := os.WriteFile(d.nextBinary(), f.Bytes(), 0o644); err != nil {
			return fmt.Errorf("dump: could not save frame: %v", err)
		}
	}
	return nil
}
