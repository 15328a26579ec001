package squeeze

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadImageFile reads a whole file, refusing files larger than maxBytes
// (0 means no limit) with an error of kind KindInvalidRequest.
func ReadImageFile(filename string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("squeeze: open %q: %w", filename, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("squeeze: stat %q: %w", filename, err)
	}
	if maxBytes > 0 && stat.Size() > maxBytes {
		return nil, errorf(KindInvalidRequest, "read", "%s is %s, limit is %s",
			filename, humanBytes(stat.Size()), humanBytes(maxBytes))
	}

	var r io.Reader = f
	if maxBytes > 0 {
		// The file may grow between Stat and Read.
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("squeeze: read %q: %w", filename, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errorf(KindInvalidRequest, "read", "%s exceeds limit of %s", filename, humanBytes(maxBytes))
	}
	return data, nil
}

// CompressFile compresses src into dst with the default Compressor.
func CompressFile(src, dst string, req Request) (*Result, error) {
	return defaultCompressor.CompressFile(src, dst, req)
}

// CompressFile reads src, compresses it and writes dst. dst is replaced
// atomically, so a failed request never leaves a partial file behind.
func (c *Compressor) CompressFile(src, dst string, req Request) (*Result, error) {
	return c.compressFile(src, dst, req, 0)
}

func (c *Compressor) compressFile(src, dst string, req Request, maxBytes int64) (*Result, error) {
	data, err := ReadImageFile(src, maxBytes)
	if err != nil {
		return nil, err
	}
	result, err := c.Compress(data, req)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(dst, result.Data); err != nil {
		return nil, err
	}
	return result, nil
}

// Save writes the compressed bytes to filename, replacing it atomically.
func (r *Result) Save(filename string) error {
	if len(r.Data) == 0 {
		return newError(KindEncode, "save", fmt.Errorf("result holds no data"))
	}
	return writeFileAtomic(filename, r.Data)
}

// writeFileAtomic writes data to a temp file next to filename and renames it
// into place.
func writeFileAtomic(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("squeeze: create temp for %q: %w", filename, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("squeeze: write %q: %w", filename, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("squeeze: chmod %q: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("squeeze: close %q: %w", filename, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("squeeze: rename into %q: %w", filename, err)
	}
	return nil
}
