// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// enroll_cmd.go - CLI command for owner PIN enrollment in docvault.
//
// Command: enroll [flags]
//
// Flags:
//
//	--totp            Also enroll a TOTP authenticator
//	--issuer NAME     TOTP issuer label (default "docvault")
//
// The PIN is read without echo. Enrollment replaces any existing
// credential, so a forgotten PIN is recovered by re-enrolling, not by
// bypassing verification.
package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/jeranaias/docvault-tui/internal/oracle"
)

// HandleEnroll sets or replaces the owner PIN.
func HandleEnroll(args Args) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	local := oracle.NewLocal(cfg.Storage.CredentialPath)
	if local.Enrolled() && !args.Parser.BoolFlag("force") {
		fmt.Println("A PIN is already enrolled. Continuing will replace it.")
	}

	pin, err := readPIN("New PIN: ")
	if err != nil {
		return err
	}
	confirm, err := readPIN("Confirm PIN: ")
	if err != nil {
		return err
	}
	if pin != confirm {
		return fmt.Errorf("PINs do not match")
	}

	if err := local.Enroll(pin); err != nil {
		return err
	}
	fmt.Println("PIN enrolled.")

	if args.Parser.BoolFlag("totp") {
		issuer := args.Parser.FlagOrDefault("issuer", "docvault")
		account := cfg.Owner.Email
		if account == "" {
			account = cfg.Owner.UserID
		}
		if account == "" {
			account = "owner"
		}
		key, err := local.EnrollTOTP(issuer, account)
		if err != nil {
			return fmt.Errorf("failed to enroll TOTP: %w", err)
		}
		fmt.Println("TOTP enrolled. Add this URL to your authenticator:")
		fmt.Println("  " + key.URL())
	}
	return nil
}

// readPIN reads a PIN from the terminal without echo.
func readPIN(prompt string) (string, error) {
	fmt.Print(prompt)
	pinBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	pin := string(pinBytes)
	if len(pin) < oracle.MinPINLength {
		return "", fmt.Errorf("PIN must be at least %d characters", oracle.MinPINLength)
	}
	return pin, nil
}
