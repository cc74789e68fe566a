package iox

import (
	"io"
	"os"
	"path/filepath"
)

// Write the stream to dstFilename. If anything goes wrong, dstFilename is removed.
func WriteStreamToFile(dstFilename string, src io.Reader) error {
	dstFile, err := os.Create(dstFilename)
	if err != nil {
		return err
	}
	defer dstFile.Close()
	_, err = io.Copy(dstFile, src)
	if err != nil {
		os.Remove(dstFilename)
		return err
	}
	return dstFile.Close()
}

// Write to a temporary file in the same directory, and then rename it over dstFilename,
// so that readers never see a half-written file.
func WriteFileAtomic(dstFilename string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dstFilename), "."+filepath.Base(dstFilename)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dstFilename); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
