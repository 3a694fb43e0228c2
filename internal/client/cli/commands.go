package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"path"
	"slices"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/netx"
	"github.com/dmitrijs2005/chainkeeper/internal/wire"
)

// downloadFn is a test seam for fetching exported backups.
var downloadFn = netx.Download

var (
	errRejected         = errors.New("request rejected")
	errPasswordMismatch = errors.New("passwords do not match")
)

func (a *App) fail(err error) error {
	log.Printf("error: %v", err)
	return err
}

// arg returns args[i] or, when absent, asks for it.
func (a *App) arg(args []string, i int, prompt string) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	v, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s", common.ErrorValidation, "value is required")
	}
	return v, nil
}

func (a *App) password(prompt string) (string, error) {
	pw, err := GetPassword(a.out, prompt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) newPassword() (string, error) {
	pw, err := a.password("Enter new password: ")
	if err != nil {
		return "", err
	}
	again, err := a.password("Repeat new password: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errPasswordMismatch
	}
	return pw, nil
}

// pairs parses inline name=value arguments, falling back to a prompt when
// none were given.
func (a *App) pairs(inline []string, prompt string) (map[string]any, error) {
	if len(inline) > 0 {
		return ParsePairs(inline)
	}
	lines, err := GetPairs(a.reader, prompt, a.out)
	if err != nil {
		return nil, err
	}
	return ParsePairs(lines)
}

func (a *App) report(ok bool, success, failure string) error {
	if !ok {
		fmt.Fprintln(a.out, failure)
		return errRejected
	}
	fmt.Fprintln(a.out, success)
	return nil
}

func (a *App) printAccount(acc *wire.Account) {
	fmt.Fprintf(a.out, "Account: %s\nUser: %s\n", acc.AccountID, acc.UserKey)
	printData(a, "Metadata", acc.MetaData)
	if acc.SensitiveData != nil {
		printData(a, "Sensitive data", acc.SensitiveData)
	}
}

func printData(a *App, title string, d map[string]any) {
	fmt.Fprintf(a.out, "%s:\n", title)
	for _, k := range slices.Sorted(maps.Keys(d)) {
		fmt.Fprintf(a.out, "  %s = %v\n", k, d[k])
	}
}

func (a *App) Available(ctx context.Context, args []string) error {
	user, err := a.arg(args, 0, "Enter user key")
	if err != nil {
		return a.fail(err)
	}
	ok, err := a.api.Available(ctx, user)
	if err != nil {
		return a.fail(err)
	}
	if ok {
		fmt.Fprintf(a.out, "%s is available\n", user)
	} else {
		fmt.Fprintf(a.out, "%s is taken\n", user)
	}
	return nil
}

func (a *App) Register(ctx context.Context, args []string) error {
	user, err := a.arg(args, 0, "Enter user key")
	if err != nil {
		return a.fail(err)
	}
	pw, err := a.newPassword()
	if err != nil {
		return a.fail(err)
	}
	var inline []string
	if len(args) > 1 {
		inline = args[1:]
	}
	meta, err := a.pairs(inline, "Enter metadata")
	if err != nil {
		return a.fail(err)
	}
	secrets, err := a.pairs(nil, "Enter sensitive data")
	if err != nil {
		return a.fail(err)
	}

	ok, err := a.api.Register(ctx, user, pw, meta, secrets)
	if err != nil {
		return a.fail(err)
	}
	return a.report(ok, "Registered "+user, "Registration rejected: user key taken or input invalid")
}

// Show prints an account. An empty password prints public metadata only.
func (a *App) Show(ctx context.Context, args []string) error {
	user, err := a.arg(args, 0, "Enter user key")
	if err != nil {
		return a.fail(err)
	}
	pw, err := a.password("Enter password (empty for metadata only): ")
	if err != nil {
		return a.fail(err)
	}

	var acc *wire.Account
	if pw == "" {
		acc, err = a.api.Lookup(ctx, user)
	} else {
		acc, err = a.api.Retrieve(ctx, user, pw)
	}
	if errors.Is(err, common.ErrorNotFound) {
		fmt.Fprintln(a.out, "Account not found")
		return err
	}
	if err != nil {
		return a.fail(err)
	}

	a.printAccount(acc)
	return nil
}

func (a *App) Verify(ctx context.Context, args []string) error {
	user, err := a.arg(args, 0, "Enter user key")
	if err != nil {
		return a.fail(err)
	}
	pw, err := a.password("Enter password: ")
	if err != nil {
		return a.fail(err)
	}
	ok, err := a.api.Verify(ctx, user, pw)
	if err != nil {
		return a.fail(err)
	}
	return a.report(ok, "Password is valid", "Password is invalid")
}

func (a *App) Passwd(ctx context.Context, args []string) error {
	user, err := a.arg(args, 0, "Enter user key")
	if err != nil {
		return a.fail(err)
	}
	pw, err := a.password("Enter current password: ")
	if err != nil {
		return a.fail(err)
	}
	newPw, err := a.newPassword()
	if err != nil {
		return a.fail(err)
	}
	ok, err := a.api.ChangePassword(ctx, user, pw, newPw)
	if err != nil {
		return a.fail(err)
	}
	return a.report(ok, "Password changed", "Password change rejected")
}

func (a *App) Rename(ctx context.Context, args []string) error {
	user, err := a.arg(args, 0, "Enter user key")
	if err != nil {
		return a.fail(err)
	}
	newUser, err := a.arg(args, 1, "Enter new user key")
	if err != nil {
		return a.fail(err)
	}
	pw, err := a.password("Enter password: ")
	if err != nil {
		return a.fail(err)
	}
	ok, err := a.api.ChangeUsername(ctx, user, pw, newUser)
	if err != nil {
		return a.fail(err)
	}
	return a.report(ok, fmt.Sprintf("Renamed %s to %s", user, newUser), "Rename rejected")
}

// SetMeta replaces public metadata. Admins may leave the password empty.
func (a *App) SetMeta(ctx context.Context, args []string) error {
	user, err := a.arg(args, 0, "Enter user key")
	if err != nil {
		return a.fail(err)
	}
	meta, err := a.pairs(args[min(1, len(args)):], "Enter metadata")
	if err != nil {
		return a.fail(err)
	}
	pw, err := a.password("Enter password: ")
	if err != nil {
		return a.fail(err)
	}
	ok, err := a.api.ChangeMetaData(ctx, user, pw, meta)
	if err != nil {
		return a.fail(err)
	}
	return a.report(ok, "Metadata updated", "Metadata update rejected")
}

func (a *App) SetSecret(ctx context.Context, args []string) error {
	user, err := a.arg(args, 0, "Enter user key")
	if err != nil {
		return a.fail(err)
	}
	secrets, err := a.pairs(args[min(1, len(args)):], "Enter sensitive data")
	if err != nil {
		return a.fail(err)
	}
	pw, err := a.password("Enter password: ")
	if err != nil {
		return a.fail(err)
	}
	ok, err := a.api.ChangeSensitiveData(ctx, user, pw, secrets)
	if err != nil {
		return a.fail(err)
	}
	return a.report(ok, "Sensitive data updated", "Sensitive data update rejected")
}

// Remove deletes an account. With an admin token an empty password forces
// the removal.
func (a *App) Remove(ctx context.Context, args []string) error {
	user, err := a.arg(args, 0, "Enter user key")
	if err != nil {
		return a.fail(err)
	}
	prompt := "Enter password: "
	if a.isAdmin() {
		prompt = "Enter password (empty to force): "
	}
	pw, err := a.password(prompt)
	if err != nil {
		return a.fail(err)
	}
	force := pw == "" && a.isAdmin()
	if pw == "" && !force {
		return a.fail(fmt.Errorf("%w: %s", common.ErrorValidation, "password is required"))
	}

	ok, err := a.api.Remove(ctx, user, pw, force)
	if err != nil {
		return a.fail(err)
	}
	return a.report(ok, "Removed "+user, "Removal rejected")
}

func (a *App) Admin(ctx context.Context, args []string) error {
	address, err := a.arg(args, 0, "Enter master address")
	if err != nil {
		return a.fail(err)
	}
	secret, err := a.password("Enter master secret: ")
	if err != nil {
		return a.fail(err)
	}
	if err := a.api.AdminLogin(ctx, address, secret); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Admin token acquired")
	return nil
}

func (a *App) Wipe(ctx context.Context, _ []string) error {
	answer, err := GetSimpleText(a.reader, "Type 'yes' to delete every account", a.out)
	if err != nil {
		return a.fail(err)
	}
	if answer != "yes" {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	ok, err := a.api.DeleteAll(ctx)
	if err != nil {
		return a.fail(err)
	}
	return a.report(ok, "All accounts deleted", "Wipe rejected")
}

// Backup exports every account and downloads the file to args[0], or to the
// base name of the storage key.
func (a *App) Backup(ctx context.Context, args []string) error {
	res, err := a.api.ExportBackup(ctx)
	if err != nil {
		return a.fail(err)
	}
	dst := path.Base(res.Key)
	if len(args) > 0 {
		dst = args[0]
	}
	if err := downloadFn(res.URL, dst); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Exported %d accounts to %s, saved as %s\n", res.Accounts, res.Key, dst)
	return nil
}

func (a *App) Restore(ctx context.Context, args []string) error {
	key, err := a.arg(args, 0, "Enter backup key")
	if err != nil {
		return a.fail(err)
	}
	res, err := a.api.RestoreBackup(ctx, key)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Restored %d accounts, skipped %d\n", res.Restored, res.Skipped)
	return nil
}

func (a *App) Ping(ctx context.Context, _ []string) error {
	if err := a.api.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return a.fail(err)
	}
	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, "OK")
	return nil
}
