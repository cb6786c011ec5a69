package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authdesk/internal/client/models"
	"github.com/dmitrijs2005/authdesk/internal/common"
	"github.com/dmitrijs2005/authdesk/internal/passhash"
)

// getSimpleText, getPassword and getYesNo are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getYesNo = GetYesNo

// Register prompts for the registration form and creates the account.
// Password bytes are wiped before returning.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Choose a username (3-20 characters, not starting with a digit)", os.Stdout)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword("Choose a password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword("Confirm password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	resp := a.auth.Register(ctx, models.RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        string(password),
		ConfirmPassword: string(confirm),
	})
	printlnFn(resp.Message)
	if resp.Success {
		printlnFn("You can now log in with your new account.")
	}
	return nil
}

// Login prompts for credentials and authenticates.
func (a *App) Login(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Enter username or email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	remember, err := getYesNo(a.reader, "Stay logged in on this machine?", os.Stdout)
	if err != nil {
		return err
	}

	resp := a.auth.Login(ctx, models.LoginRequest{
		UsernameOrEmail: identifier,
		Password:        string(password),
		RememberMe:      remember,
	})
	printlnFn(resp.Message)
	return nil
}

// Logout ends the session.
func (a *App) Logout(ctx context.Context) error {
	resp := a.auth.Logout(ctx)
	printlnFn(resp.Message)
	return nil
}

// WhoAmI prints the current account.
func (a *App) WhoAmI(ctx context.Context) error {
	user := a.auth.CurrentUser()
	if user == nil {
		printlnFn("Not logged in.")
		return nil
	}
	printlnFn(fmt.Sprintf("Logged in as %s <%s>", user.Username, user.Email))
	return nil
}

// ChangePassword prompts for the current and new password and performs the
// change.
func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := getPassword("Current password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPassword)

	newPassword, err := getPassword("New password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	confirm, err := getPassword("Confirm new password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	resp := a.auth.ChangePassword(ctx, string(oldPassword), string(newPassword), string(confirm))
	printlnFn(resp.Message)
	return nil
}

// ForgotPassword requests a reset email for the entered address.
func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter your account email", os.Stdout)
	if err != nil {
		return err
	}
	resp := a.auth.ForgotPassword(ctx, email)
	printlnFn(resp.Message)
	return nil
}

// ResetPassword completes a reset with a token from the reset email.
func (a *App) ResetPassword(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter the reset token from the email", os.Stdout)
	if err != nil {
		return err
	}

	newPassword, err := getPassword("New password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	confirm, err := getPassword("Confirm new password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	resp := a.auth.ResetPassword(ctx, token, string(newPassword), string(confirm))
	printlnFn(resp.Message)
	return nil
}

// Suggest generates a strong password and reports its strength.
func (a *App) Suggest(ctx context.Context) error {
	password, err := passhash.GeneratePassword(passhash.DefaultGenerateOptions())
	if err != nil {
		return err
	}
	strength := passhash.CheckStrength(password)
	printlnFn(fmt.Sprintf("Suggested password: %s (strength: %s)", password, strength.Label()))
	return nil
}
