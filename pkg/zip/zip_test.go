package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveAssetsRoundTrip(t *testing.T) {
	assets := []Asset{
		{Filename: "ledger.csv", MIME: "text/csv", Data: []byte("id,points\nevt-1,10\n")},
		{Filename: "manifest.json", MIME: "application/json", Data: []byte(`{"rows":1}`)},
	}

	data := ArchiveAssets(assets)
	if len(data) == 0 {
		t.Fatal("empty archive")
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("file count = %d, want 2", len(zr.File))
	}
	for i, asset := range assets {
		f := zr.File[i]
		if f.Name != asset.Filename {
			t.Fatalf("file[%d] = %q, want %q", i, f.Name, asset.Filename)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if !bytes.Equal(content, asset.Data) {
			t.Fatalf("content of %s = %q, want %q", f.Name, content, asset.Data)
		}
	}
}

func TestArchiveAssetsEmpty(t *testing.T) {
	data := ArchiveAssets(nil)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 0 {
		t.Fatalf("file count = %d, want 0", len(zr.File))
	}
}
