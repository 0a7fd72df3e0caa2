package zetsubou

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// FileInput names a byte stream for upload.
type FileInput struct {
	Name   string
	Reader io.Reader
}

// FileFromPath reads the file at path into memory for upload. Contents are
// buffered so transient upload failures can be replayed.
func FileFromPath(path string) (FileInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileInput{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return FileInput{Name: filepath.Base(path), Reader: bytes.NewReader(data)}, nil
}

// FileFromBytes wraps in-memory content as an upload input.
func FileFromBytes(name string, data []byte) FileInput {
	return FileInput{Name: name, Reader: bytes.NewReader(data)}
}

// filePart pairs a multipart field name with its file input.
type filePart struct {
	field string
	file  FileInput
}

// buildMultipart assembles a multipart/form-data body from file parts and
// plain form fields. The body is returned as bytes so the transport can
// replay it on retry.
func buildMultipart(parts []filePart, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		name := p.file.Name
		if name == "" {
			name = p.field
		}
		fw, err := w.CreateFormFile(p.field, name)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %s: %w", p.field, err)
		}
		if p.file.Reader == nil {
			return nil, "", fmt.Errorf("file %s has no reader", name)
		}
		if _, err := io.Copy(fw, p.file.Reader); err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", name, err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
