package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/vkozyrev/backupd/internal/common"
)

// GenerateLicense requests a fresh activation key and prints it.
func (a *App) GenerateLicense(ctx context.Context) error {
	key, err := a.client.GenerateLicense(ctx)
	if err != nil {
		log.Printf("License generation failed: %s", err.Error())
		return err
	}
	fmt.Println("Activation key:", key)
	return nil
}

// ActivateLicense prompts for an activation key and claims it for the
// logged-in account.
func (a *App) ActivateLicense(ctx context.Context) error {
	key, err := getSimpleText(a.reader, "Enter activation key", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.client.ActivateLicense(ctx, key); err != nil {
		switch {
		case errors.Is(err, common.ErrAlreadyActive):
			fmt.Println("That key has already been activated.")
		case errors.Is(err, common.ErrNotFound):
			fmt.Println("Unknown activation key.")
		default:
			log.Printf("Activation failed: %s", err.Error())
		}
		return err
	}

	fmt.Println("License activated. You can now upload backups.")
	return nil
}

// DownloadLicense fetches the signed license document and writes it to the
// configured license file.
func (a *App) DownloadLicense(ctx context.Context) error {
	doc, err := a.client.LicenseDocument(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			fmt.Println("No active license on this account.")
		} else {
			log.Printf("License download failed: %s", err.Error())
		}
		return err
	}

	if err := os.WriteFile(a.config.LicenseFile, doc, 0o600); err != nil {
		log.Printf("Could not write license file: %s", err.Error())
		return err
	}
	fmt.Println("License document saved to", a.config.LicenseFile)
	return nil
}

// VerifyLicense submits a license document file for server-side signature
// verification.
func (a *App) VerifyLicense(ctx context.Context, path string) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Could not read %s: %s", path, err.Error())
		return err
	}

	valid, err := a.client.VerifyLicense(ctx, doc)
	if err != nil {
		log.Printf("Verification failed: %s", err.Error())
		return err
	}

	if valid {
		fmt.Println("License is valid.")
	} else {
		fmt.Println("License is NOT valid.")
	}
	return nil
}
