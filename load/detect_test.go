package load

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

const isaHeader = "ISA*00*          *00*          *ZZ*PAYERID        *ZZ*PROVIDERID     *240115*1200*^*00501*000000001*0*P*:~"

func TestIsArchiveFile(t *testing.T) {
	tmp := t.TempDir()

	plain := filepath.Join(tmp, "remit.zip")
	if err := os.WriteFile(plain, []byte("not a real zip file"), 0644); err != nil {
		t.Fatal(err)
	}
	if got, err := isArchiveFile(plain); err != nil || got {
		t.Errorf("isArchiveFile(fake zip) = %v, %v; want false, nil", got, err)
	}

	real := filepath.Join(tmp, "real.bin")
	f, err := os.Create(real)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, _ := w.Create("a.835")
	fw.Write([]byte(isaHeader))
	w.Close()
	f.Close()
	if got, err := isArchiveFile(real); err != nil || !got {
		t.Errorf("isArchiveFile(zip) = %v, %v; want true, nil", got, err)
	}

	if _, err := isArchiveFile(filepath.Join(tmp, "missing.zip")); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{"utf-8", []byte{0xEF, 0xBB, 0xBF, 'I'}, encUTF8},
		{"utf-16be", []byte{0xFE, 0xFF, 0x00, 'I'}, encUTF16BigEndian},
		{"utf-16le", []byte{0xFF, 0xFE, 'I', 0x00}, encUTF16LittleEndian},
		{"utf-32be", []byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
		{"utf-32le", []byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
		{"none", []byte("ISA*"), encUnknown},
		{"short", []byte{0xEF}, encUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.buf); got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsX12(t *testing.T) {
	tests := []struct {
		name string
		buf  string
		want bool
	}{
		{"plain", isaHeader, true},
		{"pipe separated", "ISA|00|", true},
		{"leading space", "\r\n  ISA*00", true},
		{"bom", "\xEF\xBB\xBFISA*00", true},
		{"letter after ISA", "ISAAC", false},
		{"too short", "ISA", false},
		{"other", "<?xml version", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isX12([]byte(tt.buf)); got != tt.want {
				t.Errorf("isX12(%q) = %v, want %v", tt.buf, got, tt.want)
			}
		})
	}
}

func TestIsInterchangeFile(t *testing.T) {
	tmp := t.TempDir()
	sample := []byte(isaHeader + "GS*HP~")

	tests := []struct {
		name    string
		data    []byte
		wantOK  bool
		wantEnc srcEncoding
	}{
		{"plain", sample, true, encUnknown},
		{"utf-8 bom", encodeSample(t, sample, encUTF8), true, encUTF8},
		{"utf-16le", encodeSample(t, sample, encUTF16LittleEndian), true, encUTF16LittleEndian},
		{"utf-16be", encodeSample(t, sample, encUTF16BigEndian), true, encUTF16BigEndian},
		{"utf-32le", encodeSample(t, sample, encUTF32LittleEndian), true, encUTF32LittleEndian},
		{"utf-32be", encodeSample(t, sample, encUTF32BigEndian), true, encUTF32BigEndian},
		{"text", []byte("hello world"), false, encUnknown},
		{"empty", nil, false, encUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmp, tt.name+".835")
			if err := os.WriteFile(path, tt.data, 0644); err != nil {
				t.Fatal(err)
			}
			ok, enc, err := isInterchangeFile(path, nil)
			if err != nil {
				t.Fatalf("isInterchangeFile() error = %v", err)
			}
			if ok != tt.wantOK || enc != tt.wantEnc {
				t.Errorf("isInterchangeFile() = %v, %v; want %v, %v", ok, enc, tt.wantOK, tt.wantEnc)
			}
		})
	}

	if _, _, err := isInterchangeFile(filepath.Join(tmp, "missing"), nil); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestIsInterchangeFile_Charset(t *testing.T) {
	// EBCDIC input is only recognized when its charset is given
	encoded, err := charmap.CodePage037.NewEncoder().Bytes([]byte(isaHeader))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "ebcdic.835")
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		t.Fatal(err)
	}

	if ok, _, _ := isInterchangeFile(path, nil); ok {
		t.Error("EBCDIC input recognized without charset")
	}
	ok, enc, err := isInterchangeFile(path, charmap.CodePage037)
	if err != nil || !ok || enc != encUnknown {
		t.Errorf("isInterchangeFile(cp037) = %v, %v, %v; want true, unknown, nil", ok, enc, err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, err := io.ReadAll(selectReader(f, enc, charmap.CodePage037))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != isaHeader {
		t.Errorf("decoded = %q", data)
	}
}

func TestIsInterchangeInArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remits.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for name, content := range map[string]string{"a.835": isaHeader, "notes.txt": "hello"} {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	w.Close()
	f.Close()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		ok, _, err := isInterchangeInArchive(zf, nil)
		if err != nil {
			t.Fatalf("isInterchangeInArchive(%s) error = %v", zf.Name, err)
		}
		if want := zf.Name == "a.835"; ok != want {
			t.Errorf("isInterchangeInArchive(%s) = %v, want %v", zf.Name, ok, want)
		}
	}
}

func TestSelectReader(t *testing.T) {
	sample := []byte(isaHeader)
	for _, enc := range []srcEncoding{encUnknown, encUTF8, encUTF16BigEndian, encUTF16LittleEndian, encUTF32BigEndian, encUTF32LittleEndian} {
		t.Run(enc.String(), func(t *testing.T) {
			data, err := io.ReadAll(selectReader(bytes.NewReader(encodeSample(t, sample, enc)), enc, nil))
			if err != nil {
				t.Fatalf("read error = %v", err)
			}
			if !bytes.Equal(data, sample) {
				t.Errorf("decoded = %q, want %q", data, sample)
			}
		})
	}
}

func TestSelectReader_Panic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for invalid encoding")
		}
	}()
	selectReader(bytes.NewReader(nil), srcEncoding(999), nil)
}
