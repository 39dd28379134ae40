package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/vkozyrev/backupd/internal/common"
	"github.com/vkozyrev/backupd/internal/cryptox"
)

// Upload encrypts a local file with the account key and sends it to the
// server. Only the ciphertext ever leaves the machine.
func (a *App) Upload(ctx context.Context, path string) error {
	if !a.isLoggedIn() {
		fmt.Println("Log in first.")
		return common.ErrUnauthorized
	}

	plaintext, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Could not read %s: %s", path, err.Error())
		return err
	}

	blob, err := cryptox.EncryptBlob(plaintext, a.encryptionKey)
	if err != nil {
		log.Printf("Encryption failed: %s", err.Error())
		return err
	}

	res, err := a.client.UploadBackup(ctx, filepath.Base(path), blob)
	if err != nil {
		log.Printf("Upload failed: %s", err.Error())
		return err
	}

	switch res.Status {
	case "already_present":
		fmt.Println("Identical backup already stored, nothing to do.")
	case "renamed":
		fmt.Println("Name was taken by different content; stored as", res.Filename)
	default:
		fmt.Println("Stored as", res.Filename)
	}
	return nil
}

// Download fetches a backup, decrypts it with the account key, and writes
// the plaintext to the current directory.
func (a *App) Download(ctx context.Context, name string) error {
	if !a.isLoggedIn() {
		fmt.Println("Log in first.")
		return common.ErrUnauthorized
	}

	blob, err := a.client.DownloadBackup(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			fmt.Println("No such backup.")
		} else {
			log.Printf("Download failed: %s", err.Error())
		}
		return err
	}

	plaintext, err := cryptox.DecryptBlob(blob, a.encryptionKey)
	if err != nil {
		log.Printf("Decryption failed (wrong key?): %s", err.Error())
		return err
	}

	if err := os.WriteFile(name, plaintext, 0o600); err != nil {
		log.Printf("Could not write %s: %s", name, err.Error())
		return err
	}
	fmt.Println("Restored to", name)
	return nil
}

// List prints the account's stored backups.
func (a *App) List(ctx context.Context) error {
	list, err := a.client.ListBackups(ctx)
	if err != nil {
		log.Printf("Listing failed: %s", err.Error())
		return err
	}

	if len(list) == 0 {
		fmt.Println("No backups stored.")
		return nil
	}
	for _, b := range list {
		fmt.Printf("%-40s %10d bytes  %s\n", b.Filename, b.Size, b.UploadedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// Delete removes a stored backup.
func (a *App) Delete(ctx context.Context, name string) error {
	if err := a.client.DeleteBackup(ctx, name); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			fmt.Println("No such backup.")
		} else {
			log.Printf("Delete failed: %s", err.Error())
		}
		return err
	}
	fmt.Println("Deleted", name)
	return nil
}
