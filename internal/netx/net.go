// Package netx holds small HTTP helpers for presigned object storage URLs.
package netx

import (
	"fmt"
	"io"
	"net/http"
	"os"
)

// Download fetches url and writes the body to path.
func Download(url, path string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
