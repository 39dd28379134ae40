package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/vkozyrev/backupd/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for credentials, creates an account, and stores the
// issued encryption key locally. The password byte slice is wiped before
// returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.client.Register(ctx, userName, string(password))
	if err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return err
	}

	a.userName = userName
	a.encryptionKey = sess.EncryptionKey
	if err := a.saveKey(); err != nil {
		log.Printf("Warning: could not save encryption key: %s", err.Error())
	}

	fmt.Println("Success! Your encryption key has been saved to", a.config.KeyFile)
	return nil
}

// Login prompts for credentials and authenticates. On success the account's
// encryption key replaces whatever key was cached locally.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.client.Login(ctx, userName, string(password))
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	a.userName = userName
	a.encryptionKey = sess.EncryptionKey
	if err := a.saveKey(); err != nil {
		log.Printf("Warning: could not save encryption key: %s", err.Error())
	}

	log.Printf("Login successful")
	return nil
}

// Logout wipes the in-memory key and forgets the session.
func (a *App) Logout(ctx context.Context) error {
	common.WipeByteArray(a.encryptionKey)
	a.encryptionKey = nil
	a.userName = ""
	a.client.SetTokens("", "")
	return nil
}

func (a *App) saveKey() error {
	return os.WriteFile(a.config.KeyFile, a.encryptionKey, 0o600)
}
