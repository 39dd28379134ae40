package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if a.userName != "" {
		return fmt.Sprintf("(%s)", a.userName)
	}
	return ""
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to backupd CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("bcli %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: upload <file>, download <name>, list, delete <name>, genlicense, activate, license, verify <file>, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, verify <file>, exit")
			}

		case "register":
			a.Register(ctx)
		case "login":
			a.Login(ctx)
		case "logout":
			a.Logout(ctx)

		case "genlicense":
			a.GenerateLicense(ctx)
		case "activate":
			a.ActivateLicense(ctx)
		case "license":
			a.DownloadLicense(ctx)
		case "verify":
			if len(args) == 0 {
				fmt.Println("Usage: verify <file>")
				continue
			}
			a.VerifyLicense(ctx, args[0])

		case "upload":
			if len(args) == 0 {
				fmt.Println("Usage: upload <file>")
				continue
			}
			a.Upload(ctx, args[0])
		case "download":
			if len(args) == 0 {
				fmt.Println("Usage: download <name>")
				continue
			}
			a.Download(ctx, args[0])
		case "l", "list":
			a.List(ctx)
		case "delete":
			if len(args) == 0 {
				fmt.Println("Usage: delete <name>")
				continue
			}
			a.Delete(ctx, args[0])

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
