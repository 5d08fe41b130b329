package packager

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Entry describes one archive member.
type Entry struct {
	Name   string
	Method uint16
	Size   uint64
}

// Archive is the parsed content of an exported package.
type Archive struct {
	Entries  []Entry
	Metadata ExportData
}

// Inspect reads the entry list and metadata.json of an archive.
func Inspect(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)

	archive := &Archive{}
	found := false
	for _, f := range zr.File {
		archive.Entries = append(archive.Entries, Entry{Name: f.Name, Method: f.Method, Size: f.UncompressedSize64})
		if f.Name != MetadataEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", MetadataEntry, err)
		}
		err = json.NewDecoder(rc).Decode(&archive.Metadata)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", MetadataEntry, err)
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("archive has no %s", MetadataEntry)
	}
	return archive, nil
}
