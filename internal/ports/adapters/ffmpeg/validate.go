package ffmpeg

import (
	"fmt"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// validateMP4 confirms an extracted segment is a usable container: nonzero
// size, a parseable moov box and a video track with actual duration. Stream
// copy can exit zero yet still emit a husk when the cut window misses every
// keyframe; this catches that before downstream stages waste an encode.
func validateMP4(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat extracted segment: %w", err)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("extracted segment %s is empty", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	parsed, err := mp4.DecodeFile(f)
	if err != nil {
		return fmt.Errorf("parse extracted segment: %w", err)
	}
	if parsed.Moov == nil {
		return fmt.Errorf("extracted segment %s has no moov box", path)
	}
	for _, trak := range parsed.Moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Duration > 0 {
			return nil
		}
	}
	return fmt.Errorf("extracted segment %s has no playable video track", path)
}
